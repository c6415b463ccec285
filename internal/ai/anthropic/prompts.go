package anthropic

import (
	"fmt"
	"strings"
)

// buildSuggestRisksPrompt creates the prompt for proposing risks for a work
// unit. The model answers in French since suggestions land directly in the
// DUERP.
func buildSuggestRisksPrompt(name, description, nafCode string, headcount, maxResults int) string {
	var b strings.Builder

	b.WriteString(`Tu es un préventeur expert en santé et sécurité au travail (France). À partir de la description d'une unité de travail, propose les risques professionnels à inscrire au DUERP.

Prends en compte les familles de risques classiques :
- Chutes de plain-pied et de hauteur
- Manutention manuelle et gestes répétitifs (TMS)
- Équipements de travail et outils
- Risque chimique (produits, poussières, fumées)
- Risque électrique
- Bruit, vibrations, ambiances thermiques
- Risque routier et circulation interne
- Risques psychosociaux
- Incendie / explosion
- Risque biologique

`)
	fmt.Fprintf(&b, "Unité de travail : %s\n", name)
	if description != "" {
		fmt.Fprintf(&b, "Activité : %s\n", description)
	}
	if nafCode != "" {
		fmt.Fprintf(&b, "Code NAF de l'entreprise : %s\n", nafCode)
	}
	if headcount > 0 {
		fmt.Fprintf(&b, "Effectif exposé : %d\n", headcount)
	}

	fmt.Fprintf(&b, `
Propose au plus %d risques, du plus probable au moins probable. Ne propose que des risques plausibles pour cette activité.

Réponds UNIQUEMENT avec un objet JSON de cette forme exacte, sans texte autour :

{
  "items": [
    {
      "title": "Intitulé court du risque",
      "description": "Situation dangereuse concrète et salariés exposés"
    }
  ]
}`, maxResults)

	return b.String()
}

// buildSuggestActionsPrompt creates the prompt for proposing prevention
// actions for an evaluated risk.
func buildSuggestActionsPrompt(title, description string, severity, probability int32, maxResults int) string {
	var b strings.Builder

	b.WriteString(`Tu es un préventeur expert en santé et sécurité au travail (France). Propose des actions de prévention pour le risque évalué ci-dessous, en respectant les principes généraux de prévention (suppression du risque, protection collective avant protection individuelle, formation et information en dernier recours).

`)
	fmt.Fprintf(&b, "Risque : %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "Description : %s\n", description)
	}
	fmt.Fprintf(&b, "Gravité évaluée : %d\nProbabilité évaluée : %d\n", severity, probability)

	fmt.Fprintf(&b, `
Propose au plus %d actions, de la plus efficace à la moins efficace. Chaque action doit être concrète et réalisable par une PME.

Réponds UNIQUEMENT avec un objet JSON de cette forme exacte, sans texte autour :

{
  "items": [
    {
      "title": "Intitulé court de l'action",
      "description": "Mise en œuvre concrète de l'action"
    }
  ]
}`, maxResults)

	return b.String()
}
