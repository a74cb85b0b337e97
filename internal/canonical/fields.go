package canonical

// Field is one of the fixed business attributes every source column variant
// is mapped onto. Adding support for a new source layout means adding
// aliases here, not new code paths.
type Field string

const (
	FieldUF                   Field = "uf"
	FieldProcesso             Field = "processo"
	FieldFaixaVencimento      Field = "faixa_vencimento"
	FieldDevedor              Field = "devedor"
	FieldCPFCNPJ              Field = "cpf_cnpj"
	FieldCredorCode           Field = "credor_code"
	FieldDtVencimento         Field = "dt_vencimento"
	FieldVlTitulo             Field = "vl_titulo"
	FieldSituacaoProcesso     Field = "situacao_processo"
	FieldVlTotalRepasse       Field = "vl_total_repasse"
	FieldVlSaldo              Field = "vl_saldo"
	FieldDtUltimoCredito      Field = "dt_ultimo_credito"
	FieldPortador             Field = "portador"
	FieldMotivoDevolucao      Field = "motivo_devolucao"
	FieldVlHonorarioDevedor   Field = "vl_honorario_devedor"
	FieldVlTxContrato         Field = "vl_tx_contrato"
	FieldComercial            Field = "comercial"
	FieldCobrador             Field = "cobrador"
	FieldDtEncerrado          Field = "dt_encerrado"
	FieldDiasVencidosCadastro Field = "dias_vencidos_cadastro"
	FieldDtCadastro           Field = "dt_cadastro"
)

// aliases maps each canonical field to the normalized header spellings seen
// across customer spreadsheets and source databases.
var aliases = map[Field][]string{
	FieldUF:              {"uf", "estado", "state"},
	FieldProcesso:        {"processo", "n_processo", "num_processo", "numero_processo", "numero_do_processo", "nro_processo"},
	FieldFaixaVencimento: {"faixa_vencimento", "faixa_de_vencimento", "faixa", "vencimento_faixa"},
	FieldDevedor:         {"devedor", "nome_devedor", "devedora", "nome", "sacado"},
	FieldCPFCNPJ:         {"cpf_cnpj", "cpf", "cnpj", "documento", "cpf_cgc", "cpf_cnpj_"},
	// Header like "Cód. Cliente" normalizes to cod_cliente.
	FieldCredorCode:           {"credor_code", "cod_cliente", "codigo_cliente", "id_cliente", "cliente_codigo", "codigo_credor", "cod_credor", "cliente_cod"},
	FieldDtVencimento:         {"dt_vencimento", "vencimento", "data_vencimento"},
	FieldVlTitulo:             {"vl_titulo", "valor", "valor_titulo", "amount"},
	FieldSituacaoProcesso:     {"situacao_processo", "situacao", "status", "situacao_do_processo"},
	FieldVlTotalRepasse:       {"vl_total_repasse", "valor_repasse", "repasse"},
	FieldVlSaldo:              {"vl_saldo", "saldo", "valor_saldo", "vl_sld"},
	FieldDtUltimoCredito:      {"dt_ultimo_credito", "ultimo_credito", "dt_ult_credito", "data_ultimo_credito"},
	FieldPortador:             {"portador", "portador_carteira"},
	FieldMotivoDevolucao:      {"motivo_devolucao", "motivo_da_devolucao", "motivo_devol", "motivo_dev", "motivo_da_devoluacao"},
	FieldVlHonorarioDevedor:   {"vl_honorario_devedor", "honorario_devedor", "vl_honorario", "valor_honorario_devedor"},
	FieldVlTxContrato:         {"vl_tx_contrato", "tx_contrato", "taxa_contrato", "vl_tx"},
	FieldComercial:            {"comercial"},
	FieldCobrador:             {"cobrador"},
	FieldDtEncerrado:          {"dt_encerrado", "encerrado", "data_encerrado", "dt_baixa", "data_baixa"},
	FieldDiasVencidosCadastro: {"dias_vencidos_no_cadastro", "dias_vencidos_cadastro", "dias_vencidos"},
	FieldDtCadastro:           {"dt_cadastro", "data_cadastro", "created_at", "dt_criacao"},
}
