package canonical

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// RawRow is one source record as produced by a loader: arbitrary column
// names, untyped values. Consumed once, never mutated.
type RawRow map[string]any

// NormalizeKey folds a source column name to its canonical spelling: accents
// stripped, lowercased, the separators space / . - \ collapsed to a single
// underscore.
func NormalizeKey(k string) string {
	s := stripDiacritics(k)
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		switch r {
		case ' ', '/', '.', '-', '\\', '_':
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}
	return b.String()
}

// stripDiacritics decomposes to NFD and drops combining marks, so "Código"
// and "Codigo" normalize identically.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Resolve finds the value for a canonical field in a raw row, or nil when no
// source column corresponds. Pass 1 matches normalized keys against the
// field's alias set and the canonical name itself; pass 2 falls back to
// substring heuristics for the fields most prone to free-form headers.
//
// Keys are visited in sorted order so that when two columns could satisfy
// the same field the winner is deterministic.
func Resolve(row RawRow, field Field) any {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := make(map[string]bool, len(aliases[field]))
	for _, a := range aliases[field] {
		candidates[a] = true
	}

	for _, k := range keys {
		nk := NormalizeKey(k)
		if candidates[nk] || nk == string(field) {
			return row[k]
		}
	}

	for _, k := range keys {
		nk := NormalizeKey(k)
		if heuristicMatch(field, nk) {
			return row[k]
		}
	}
	return nil
}

// heuristicMatch covers header variants the alias tables cannot enumerate.
func heuristicMatch(field Field, nk string) bool {
	switch field {
	case FieldCPFCNPJ:
		return strings.Contains(nk, "cpf") || strings.Contains(nk, "cnpj")
	case FieldDevedor:
		return strings.Contains(nk, "devedor") || strings.Contains(nk, "sacado") || nk == "nome"
	case FieldProcesso:
		return strings.Contains(nk, "processo")
	case FieldCredorCode:
		if strings.Contains(nk, "cliente") && (strings.Contains(nk, "cod") || strings.Contains(nk, "codigo")) {
			return true
		}
		return nk == "credor" || nk == "cod_credor" || nk == "codigo_credor"
	case FieldFaixaVencimento:
		return strings.Contains(nk, "faixa") && strings.Contains(nk, "venc")
	}
	return false
}
