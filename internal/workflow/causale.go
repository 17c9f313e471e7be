package workflow

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Causale 银行转账用途说明：PREFIX – TIPO – CODICE – COGNOME
// 前缀取自编号的第一段；缺少姓氏时使用 REFERENTE
func Causale(code string, typ RegistrationType, lastName string) string {
	prefix := code
	if i := strings.Index(code, "-"); i > 0 {
		prefix = code[:i]
	}

	var label string
	switch typ {
	case TypeTeam:
		label = "SQUADRA"
	case TypeIndividual:
		label = "INDIVIDUALE"
	case TypeGroup:
		label = "GRUPPO"
	case TypeSocial:
		label = "CONVIVIALE"
	default:
		label = "ISCRIZIONE"
	}

	surname := cases.Upper(language.Italian).String(strings.TrimSpace(lastName))
	if surname == "" {
		surname = "REFERENTE"
	}

	return strings.Join([]string{prefix, label, code, surname}, " – ")
}
