package services

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"bi-dashboard/internal/entities"
	apperrors "bi-dashboard/pkg/errors"
	"bi-dashboard/pkg/utils"
)

// Field - каноническое имя колонки.
type Field string

const (
	FieldNetwork   Field = "rede"
	FieldBranch    Field = "filial"
	FieldEmployee  Field = "colaborador"
	FieldActive    Field = "ativo"
	FieldStartDate Field = "data_inicio"
	FieldDate      Field = "data"
	FieldQuantity  Field = "quantidade"
	FieldAmount    Field = "valor"
)

const (
	// Максимальное расстояние Левенштейна для нечёткого совпадения заголовка
	maxFuzzyDistance = 12
	// Короткие синонимы ("dia", "qtd") участвуют только в точном сравнении
	minFuzzyAliasLen = 4
)

// Синонимы заголовков в нормализованном виде (utils.GenerateCodeFromName).
var fieldAliases = map[Field][]string{
	FieldNetwork: {
		"rede", "redes", "nome_rede", "rede_nome", "nome_da_rede", "network", "network_name",
		"bandeira", "grupo", "grupo_economico", "rede_varejo",
	},
	FieldBranch: {
		"filial", "filiais", "nome_filial", "filial_nome", "nome_da_filial", "loja", "nome_loja",
		"unidade", "branch", "branch_name", "pdv", "ponto_de_venda",
	},
	FieldEmployee: {
		"colaborador", "colaboradores", "nome_colaborador", "colaborador_nome", "nome_do_colaborador",
		"funcionario", "nome_funcionario", "vendedor", "nome_vendedor", "consultor", "employee", "employee_name",
	},
	FieldActive: {
		"ativo", "ativa", "status", "situacao", "active", "is_active", "ativo_inativo", "flag_ativo",
	},
	FieldStartDate: {
		"data_inicio", "data_de_inicio", "dt_inicio", "inicio", "data_admissao", "admissao",
		"data_abertura", "abertura", "data_inauguracao", "inauguracao", "start_date", "data_cadastro",
	},
	FieldDate: {
		"data", "data_venda", "dt_venda", "data_da_venda", "dia", "date", "periodo", "competencia",
	},
	FieldQuantity: {
		"quantidade", "qtd", "qtde", "quant", "vouchers", "qtd_vouchers", "quantidade_vouchers", "quantity",
	},
	FieldAmount: {
		"valor", "valor_total", "total_vendido", "valor_vendido", "receita", "faturamento", "amount",
		"valor_vouchers", "vendas",
	},
}

// Для таблиц с одной сущностью колонка "nome" означает имя этой сущности.
var entityNameAliases = map[entities.ImportEntity]Field{
	entities.EntityNetwork:  FieldNetwork,
	entities.EntityBranch:   FieldBranch,
	entities.EntityEmployee: FieldEmployee,
}

type entityColumns struct {
	Required []Field
	Optional []Field
}

var entityLayouts = map[entities.ImportEntity]entityColumns{
	entities.EntityNetwork: {
		Required: []Field{FieldNetwork},
		Optional: []Field{FieldActive},
	},
	entities.EntityBranch: {
		Required: []Field{FieldNetwork, FieldBranch},
		Optional: []Field{FieldActive, FieldStartDate},
	},
	entities.EntityEmployee: {
		Required: []Field{FieldEmployee, FieldBranch, FieldNetwork},
		Optional: []Field{FieldActive, FieldStartDate},
	},
	entities.EntityVoucher: {
		Required: []Field{FieldDate, FieldNetwork, FieldBranch, FieldAmount},
		Optional: []Field{FieldEmployee, FieldQuantity},
	},
}

// ColumnMapping - результат сопоставления заголовков.
type ColumnMapping struct {
	Entity   entities.ImportEntity
	Index    map[Field]int
	Headers  map[Field]string
	Fuzzy    map[Field]bool
	Unmapped []string
}

func (m ColumnMapping) Has(f Field) bool {
	_, ok := m.Index[f]
	return ok
}

// Value безопасно достаёт ячейку: строки из Excel бывают короче заголовка.
func (m ColumnMapping) Value(row []string, f Field) string {
	idx, ok := m.Index[f]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// NormalizeHeader приводит заголовок к коду: без регистра, диакритики и пунктуации.
func NormalizeHeader(h string) string {
	return utils.GenerateCodeFromName(h)
}

type fuzzyCandidate struct {
	header   int
	field    Field
	distance int
}

// MapColumns сопоставляет произвольные заголовки с каноническими полями сущности.
// Сначала точные синонимы, затем нечёткий поиск по оставшимся; каждое поле и каждая колонка
// используются не более одного раза.
func MapColumns(entity entities.ImportEntity, headers []string) (ColumnMapping, error) {
	layout, ok := entityLayouts[entity]
	if !ok {
		return ColumnMapping{}, apperrors.ErrUnsupportedEntity
	}

	m := ColumnMapping{
		Entity:  entity,
		Index:   make(map[Field]int),
		Headers: make(map[Field]string),
		Fuzzy:   make(map[Field]bool),
	}

	fields := append(append([]Field{}, layout.Required...), layout.Optional...)
	codes := make([]string, len(headers))
	used := make([]bool, len(headers))
	for i, h := range headers {
		codes[i] = NormalizeHeader(h)
	}

	aliasesOf := func(f Field) []string {
		aliases := fieldAliases[f]
		if nameField, ok := entityNameAliases[entity]; ok && nameField == f {
			aliases = append(append([]string{}, aliases...), "nome", "name")
		}
		return aliases
	}

	// 1. Точные совпадения, приоритет у поля, затем у первой колонки
	for _, f := range fields {
		for i, code := range codes {
			if used[i] || code == "" {
				continue
			}
			if containsString(aliasesOf(f), code) {
				m.assign(f, i, headers[i], false)
				used[i] = true
				break
			}
		}
	}

	// 2. Нечёткий поиск для оставшихся
	var candidates []fuzzyCandidate
	for i, code := range codes {
		if used[i] || code == "" {
			continue
		}
		for _, f := range fields {
			if m.Has(f) {
				continue
			}
			best := -1
			for _, alias := range aliasesOf(f) {
				if len(alias) < minFuzzyAliasLen {
					continue
				}
				d := fuzzy.RankMatchNormalizedFold(alias, code)
				if d >= 0 && d <= maxFuzzyDistance && (best < 0 || d < best) {
					best = d
				}
			}
			if best >= 0 {
				candidates = append(candidates, fuzzyCandidate{header: i, field: f, distance: best})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].distance != candidates[b].distance {
			return candidates[a].distance < candidates[b].distance
		}
		return candidates[a].header < candidates[b].header
	})
	for _, c := range candidates {
		if used[c.header] || m.Has(c.field) {
			continue
		}
		m.assign(c.field, c.header, headers[c.header], true)
		used[c.header] = true
	}

	for i, h := range headers {
		if !used[i] && strings.TrimSpace(h) != "" {
			m.Unmapped = append(m.Unmapped, h)
		}
	}

	var missing []string
	for _, f := range layout.Required {
		if !m.Has(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return m, &apperrors.MissingColumnsError{Entity: string(entity), Missing: missing}
	}
	return m, nil
}

func (m *ColumnMapping) assign(f Field, idx int, header string, fuzzyMatch bool) {
	m.Index[f] = idx
	m.Headers[f] = header
	if fuzzyMatch {
		m.Fuzzy[f] = true
	}
}

// RequiredFields - обязательные поля сущности (для сообщений и поиска шапки).
func RequiredFields(entity entities.ImportEntity) []Field {
	return entityLayouts[entity].Required
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
