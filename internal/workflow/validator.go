package workflow

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// 与 gin binding 使用同一校验库，仅用于邮箱格式
var fieldValidator = validator.New()

// 文本上限，与数据库列宽一致
const (
	maxNameLen     = 100
	maxFullNameLen = 200
	maxEmailLen    = 255
	maxPhoneLen    = 50
	maxColorLen    = 50
	maxProviderLen = 100
	maxLocationLen = 200
)

// ValidatePayload 服务端表单校验，返回全部错误提示（空切片表示通过）。
// 队伍/小组的人数与年龄段规则委托给 CompositionOf。
func ValidatePayload(n *Normalized) []string {
	if n.Type == TypeUnknown || n.Entry == nil {
		return []string{"Tipo iscrizione non valido."}
	}

	var errs []string
	errs = append(errs, validateReferente(&n.Referente)...)
	if n.Donation.GreaterThan(MaxAmount) {
		errs = append(errs, "L'importo della donazione non può superare 999999,99 €.")
	}

	switch e := n.Entry.(type) {
	case *TeamEntry:
		if !textLen(e.Name, 3, 20) {
			errs = append(errs, "Il nome della squadra deve contenere tra 3 e 20 caratteri.")
		}
		if e.Color == "" {
			errs = append(errs, "Seleziona almeno un colore per la squadra.")
		} else if !textLen(e.Color, 0, maxColorLen) {
			errs = append(errs, "Il colore della squadra è troppo lungo.")
		}
		if !textLen(e.BannerProvider, 0, maxProviderLen) {
			errs = append(errs, "Il fornitore dello striscione è troppo lungo.")
		}
		errs = append(errs, validatePlayers(e.Players)...)
		errs = append(errs, CompositionOf(n).Violations...)
		errs = append(errs, validateSocialMode(e.SocialMode)...)
		errs = append(errs, validateTransport(n.Transport)...)
	case *GroupEntry:
		errs = append(errs, validatePlayers(e.Players)...)
		errs = append(errs, CompositionOf(n).Violations...)
		errs = append(errs, validateSocialMode(e.SocialMode)...)
		errs = append(errs, validateTransport(n.Transport)...)
	case *IndividualEntry:
		if n.Referente.AgeBand == "" {
			errs = append(errs, "Seleziona la tua fascia d'età.")
		}
		if !e.SocialAnswered {
			errs = append(errs, "Indica se partecipi al momento conviviale.")
		}
		errs = append(errs, validateTransport(n.Transport)...)
	case *SocialEntry:
		if len(e.Guests) == 0 {
			errs = append(errs, "Inserisci almeno un partecipante al conviviale.")
		}
		for i, g := range e.Guests {
			if !textLen(g.FirstName, 2, 0) {
				errs = append(errs, fmt.Sprintf("Partecipante %d: nome mancante o troppo corto.", i+1))
			}
			if !textLen(g.LastName, 2, 0) {
				errs = append(errs, fmt.Sprintf("Partecipante %d: cognome mancante o troppo corto.", i+1))
			}
			errs = append(errs, personLimits(fmt.Sprintf("Partecipante %d", i+1), g)...)
		}
	}

	return errs
}

func validateReferente(ref *Referente) []string {
	var errs []string
	if !textLen(ref.FirstName, 4, 0) {
		errs = append(errs, "Il nome del referente deve contenere almeno 4 caratteri.")
	}
	if !textLen(ref.LastName, 3, 0) {
		errs = append(errs, "Il cognome del referente deve contenere almeno 3 caratteri.")
	}
	if !ValidEmail(ref.Email) {
		errs = append(errs, "Inserisci un indirizzo email valido.")
	}
	if d := digits(ref.Phone); d < 8 || d > 15 {
		errs = append(errs, "Il numero di telefono deve contenere tra 8 e 15 cifre.")
	}
	errs = append(errs, personLimits("Referente", ref.Person)...)
	if !textLen(ref.FullName(), 0, maxFullNameLen) {
		errs = append(errs, fmt.Sprintf("Referente: nome completo oltre %d caratteri.", maxFullNameLen))
	}
	if !ref.AcceptedRules || !ref.AcceptedPrivacy {
		errs = append(errs, "Devi accettare il regolamento e l'informativa privacy.")
	}
	return errs
}

func validatePlayers(players []Person) []string {
	var errs []string
	for i, p := range players {
		if !textLen(p.FirstName, 2, 0) {
			errs = append(errs, fmt.Sprintf("Giocatore %d: nome mancante o troppo corto.", i+1))
		}
		if !textLen(p.LastName, 2, 0) {
			errs = append(errs, fmt.Sprintf("Giocatore %d: cognome mancante o troppo corto.", i+1))
		}
		if p.AgeBand == "" {
			errs = append(errs, fmt.Sprintf("Giocatore %d: seleziona la fascia d'età.", i+1))
		}
		errs = append(errs, personLimits(fmt.Sprintf("Giocatore %d", i+1), p)...)
	}
	return errs
}

func validateSocialMode(mode SocialMode) []string {
	if mode == "" {
		return []string{"Indica se partecipi al momento conviviale."}
	}
	return nil
}

func validateTransport(t Transport) []string {
	switch t.Mode {
	case "none":
		return nil
	case "seek", "offer":
	default:
		return []string{"Indica la tua situazione trasporti."}
	}

	var errs []string
	if !textLen(t.Location, 2, maxLocationLen) {
		errs = append(errs, "Indica il luogo di partenza per i trasporti.")
	}
	if t.Mode == "seek" && t.SeatsNeeded < 1 {
		errs = append(errs, "Indica quanti posti ti servono.")
	}
	if t.Mode == "offer" && t.SeatsOffered < 1 {
		errs = append(errs, "Indica quanti posti puoi offrire.")
	}
	return errs
}

// personLimits 各字段不超过对应列宽
func personLimits(label string, p Person) []string {
	var errs []string
	if !textLen(p.FirstName, 0, maxNameLen) {
		errs = append(errs, fmt.Sprintf("%s: nome oltre %d caratteri.", label, maxNameLen))
	}
	if !textLen(p.LastName, 0, maxNameLen) {
		errs = append(errs, fmt.Sprintf("%s: cognome oltre %d caratteri.", label, maxNameLen))
	}
	if !textLen(p.Email, 0, maxEmailLen) {
		errs = append(errs, fmt.Sprintf("%s: email oltre %d caratteri.", label, maxEmailLen))
	}
	if !textLen(p.Phone, 0, maxPhoneLen) {
		errs = append(errs, fmt.Sprintf("%s: telefono oltre %d caratteri.", label, maxPhoneLen))
	}
	return errs
}

// ValidEmail 邮箱格式校验
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return fieldValidator.Var(email, "required,email") == nil
}

// textLen 按字符数校验，max 为 0 表示不限上限
func textLen(s string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < min {
		return false
	}
	return max == 0 || n <= max
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
