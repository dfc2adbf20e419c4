package tools

import "github.com/hugomontan/newave-agent-sub004/internal/domain"

// Default returns the NEWAVE deck tool set. Descriptions are what the router
// embeds, so they carry the vocabulary users actually type, including the
// common abbreviations.
func Default() (*Registry, error) {
	return NewRegistry(
		NewDescriptor(
			"cvu_usina",
			"Consulta o custo variável unitário (CVU) de uma usina termelétrica do deck, "+
				"em R$/MWh, por patamar e período de estudo.",
			"CVU de usina térmica",
		).WithCapability(keywordPredicate("cvu", "custo", "variavel")),
		NewDescriptor(
			"cmo_submercado",
			"Consulta o custo marginal de operação (CMO) por submercado e mês, "+
				"preço marginal do despacho no horizonte do deck.",
			"CMO por submercado",
		).WithCapability(keywordPredicate("cmo", "marginal", "preco")),
		NewDescriptor(
			"carga_submercado",
			"Consulta a carga prevista, demanda e mercado de energia por submercado "+
				"e patamar ao longo do horizonte de planejamento.",
			"Carga por submercado",
		),
		NewDescriptor(
			"ena_submercado",
			"Consulta a energia natural afluente (ENA), afluências e séries históricas "+
				"de vazão por submercado ou bacia.",
			"ENA e afluências",
		),
		NewDescriptor(
			"ear_reservatorio",
			"Consulta a energia armazenada (EAR) e o nível dos reservatórios "+
				"equivalentes, volume inicial e armazenamento máximo.",
			"Energia armazenada",
		),
		NewDescriptor(
			"geracao_termica",
			"Consulta a geração térmica despachada, GT mínima e inflexibilidade "+
				"das usinas termelétricas do deck.",
			"Geração térmica",
		),
		NewDescriptor(
			"geracao_hidraulica",
			"Consulta a geração hidráulica das usinas hidrelétricas, produtibilidade "+
				"e energia controlável por submercado.",
			"Geração hidráulica",
		),
		NewDescriptor(
			"intercambio",
			"Consulta os limites de intercâmbio e de transferência de energia "+
				"entre submercados por patamar.",
			"Limites de intercâmbio",
		),
		NewDescriptor(
			"expansao_termica",
			"Consulta o cronograma de expansão térmica, entrada de novas usinas "+
				"e alterações de potência no horizonte do deck.",
			"Expansão térmica",
		),
		NewDescriptor(
			"custo_deficit",
			"Consulta o custo de déficit por patamar de corte de carga e submercado.",
			"Custo de déficit",
		),
		NewDescriptor(
			"dados_usina",
			"Consulta os dados cadastrais de uma usina: potência instalada, "+
				"fator de capacidade, combustível e submercado.",
			"Cadastro de usina",
		),
		NewDescriptor(
			"resumo_deck",
			"Resumo do deck: data do caso, horizonte de estudo, número de usinas "+
				"e configuração geral dos arquivos.",
			"Resumo do deck",
		),
	)
}

var _ domain.Tool = Descriptor{}
var _ domain.CapabilityChecker = Descriptor{}
var _ domain.Labeler = Descriptor{}
