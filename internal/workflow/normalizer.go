package workflow

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Normalize 将前端多步骤表单提交的嵌套 JSON 规范化为 Normalized。
//
// 纯函数，永不失败：缺失或格式错误的字段一律变为空串 / 0 / false，
// 字段是否合法由 ValidatePayload 单独判断。_meta.form 决定读取哪些子结构，
// 与类型无关的字段即使存在也会被忽略。
func Normalize(raw []byte) *Normalized {
	if !gjson.ValidBytes(raw) {
		raw = []byte("{}")
	}
	root := gjson.ParseBytes(raw)

	n := &Normalized{
		Type:      ParseType(text(root.Get("_meta.form"))),
		Referente: normalizeReferente(root.Get("referente")),
		Donation:  normalizeDonation(root),
		FoodNotes: text(root.Get("social.food_notes")),
		Transport: Transport{
			Mode:         strings.ToLower(text(root.Get("transport.mode"))),
			Location:     text(root.Get("transport.location")),
			SeatsOffered: count(root.Get("transport.seats_offered")),
			SeatsNeeded:  count(root.Get("transport.seats_needed")),
		},
	}

	socialMode := strings.ToLower(text(root.Get("social.mode")))

	switch n.Type {
	case TypeTeam:
		team := root.Get("team")
		prefs := []string{
			text(team.Get("color_pref_1")),
			text(team.Get("color_pref_2")),
			text(team.Get("color_pref_3")),
		}
		color := text(team.Get("color_custom"))
		if color == "" {
			color = prefs[0]
		}
		n.Entry = &TeamEntry{
			Name:           text(team.Get("name")),
			Color:          color,
			ColorPrefs:     prefs,
			BannerProvider: text(team.Get("banner_provider")),
			BannerNotes:    text(team.Get("banner_notes")),
			Roster:         normalizeRoster(root, socialMode),
		}
	case TypeGroup:
		n.Entry = &GroupEntry{Roster: normalizeRoster(root, socialMode)}
	case TypeIndividual:
		// "yes_b" 为旧版表单的取值
		n.Entry = &IndividualEntry{
			AttendsSocial:  socialMode == "yes" || socialMode == "yes_b",
			SocialAnswered: socialMode != "",
		}
	case TypeSocial:
		var guests []Person
		each(root.Get("social_participants"), func(sp gjson.Result) {
			guests = append(guests, Person{
				FirstName:     text(sp.Get("first_name")),
				LastName:      text(sp.Get("last_name")),
				Email:         strings.ToLower(text(sp.Get("email"))),
				Phone:         text(sp.Get("phone")),
				FoodNotes:     text(sp.Get("intolleranze")),
				AttendsSocial: true,
			})
		})
		n.Entry = &SocialEntry{Guests: guests}
	}

	return n
}

func normalizeReferente(ref gjson.Result) Referente {
	return Referente{
		Person: Person{
			FirstName: text(ref.Get("first_name")),
			LastName:  text(ref.Get("last_name")),
			Email:     strings.ToLower(text(ref.Get("email"))),
			Phone:     text(ref.Get("phone")),
			AgeBand:   band(ref.Get("fascia")),
		},
		AcceptedRules:   flag(ref.Get("accepted_rules")),
		AcceptedPrivacy: flag(ref.Get("accepted_privacy")),
	}
}

// normalizeRoster 读取 players[]；mode=all 时全员参加聚餐，mode=none 时全员不参加
func normalizeRoster(root gjson.Result, mode string) Roster {
	r := Roster{SocialMode: SocialMode(mode)}
	switch r.SocialMode {
	case SocialAll, SocialSome, SocialNone:
	default:
		r.SocialMode = ""
	}

	each(root.Get("players"), func(p gjson.Result) {
		attends := flag(p.Get("social"))
		switch r.SocialMode {
		case SocialAll:
			attends = true
		case SocialNone:
			attends = false
		}
		r.Players = append(r.Players, Person{
			FirstName:     text(p.Get("first_name")),
			LastName:      text(p.Get("last_name")),
			Email:         strings.ToLower(text(p.Get("email"))),
			Phone:         text(p.Get("phone")),
			AgeBand:       band(p.Get("age_band")),
			AttendsSocial: attends,
		})
	})
	r.ReferenteSocial = flag(root.Get("social.referente"))
	return r
}

// normalizeDonation quotes.donation 优先，其次顶层 donation；负数按 0 处理，保留两位小数
func normalizeDonation(root gjson.Result) decimal.Decimal {
	v := root.Get("quotes.donation")
	if !v.Exists() || v.Type == gjson.Null {
		v = root.Get("donation")
	}
	return NonNegative(money(v))
}

// ── gjson 宽松取值 ──

func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return strings.TrimSpace(r.String())
	}
	return ""
}

func flag(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Float() != 0
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "1", "true", "yes", "on", "si", "sì":
			return true
		}
	}
	return false
}

func count(r gjson.Result) int {
	var n int
	switch r.Type {
	case gjson.Number:
		n = int(r.Int())
	case gjson.String:
		n, _ = strconv.Atoi(strings.TrimSpace(r.Str))
	}
	if n < 0 {
		return 0
	}
	return n
}

func band(r gjson.Result) string {
	b := strings.ToUpper(text(r))
	if IsAgeBand(b) {
		return b
	}
	return ""
}

// 金额输入的长度与指数范围；超出时按无法解析处理，避免后续取整展开超大数
const (
	moneyMaxLen      = 32
	moneyMinExponent = -moneyMaxLen
	moneyMaxExponent = 12
)

// money 接受 JSON 数字或数字字符串（允许逗号作小数点），无法解析时为 0。
// 超过 MaxAmount 的值原样保留，由 ValidatePayload 报错。
func money(r gjson.Result) decimal.Decimal {
	var s string
	switch r.Type {
	case gjson.Number:
		s = r.Raw
	case gjson.String:
		s = strings.ReplaceAll(strings.TrimSpace(r.Str), ",", ".")
	default:
		return decimal.Zero
	}
	if len(s) > moneyMaxLen {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if e := d.Exponent(); e < moneyMinExponent || e > moneyMaxExponent {
		return decimal.Zero
	}
	return d
}

// each 仅遍历数组；对象或标量视为空列表
func each(r gjson.Result, fn func(gjson.Result)) {
	if !r.IsArray() {
		return
	}
	for _, item := range r.Array() {
		if item.IsObject() {
			fn(item)
		}
	}
}
