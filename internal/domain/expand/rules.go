package expand

import "regexp"

// DefaultRules maps the abbreviations users actually type against NEWAVE
// decks to the vocabulary the tool descriptions use. Keep the replacement
// lists short: every replacement adds one variant to the embedded string.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern:      regexp.MustCompile(`\bcvu\b`),
			Replacements: []string{"custo variavel unitario", "custo de geracao termica"},
		},
		{
			Pattern:      regexp.MustCompile(`\bcmo\b`),
			Replacements: []string{"custo marginal de operacao", "preco marginal"},
		},
		{
			Pattern:      regexp.MustCompile(`\bena\b`),
			Replacements: []string{"energia natural afluente", "afluencia"},
		},
		{
			Pattern:      regexp.MustCompile(`\bear\b`),
			Replacements: []string{"energia armazenada", "nivel dos reservatorios"},
		},
		{
			Pattern:      regexp.MustCompile(`\bute\b`),
			Replacements: []string{"usina termeletrica", "termica"},
		},
		{
			Pattern:      regexp.MustCompile(`\buhe\b`),
			Replacements: []string{"usina hidreletrica", "hidraulica"},
		},
		{
			Pattern:      regexp.MustCompile(`\bgt\b`),
			Replacements: []string{"geracao termica"},
		},
		{
			Pattern:      regexp.MustCompile(`\bcarga\b`),
			Replacements: []string{"demanda de energia", "mercado de energia"},
		},
		{
			Pattern:      regexp.MustCompile(`\bintercambio\b|\bintercâmbio\b`),
			Replacements: []string{"limite de transferencia entre submercados"},
		},
		{
			Pattern:      regexp.MustCompile(`\bdeficit\b|\bdéficit\b`),
			Replacements: []string{"custo de deficit", "corte de carga"},
		},
	}
}
