// Package workflow 报名流程引擎的纯逻辑部分：载荷规范化、费用计算、
// 队伍构成校验、表单校验、状态机转换表与报名编号生成。
// 本包不做任何 I/O，持久化与事务由 service / repository 层负责。
package workflow

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RegistrationType 报名类型
type RegistrationType string

const (
	TypeTeam       RegistrationType = "team"
	TypeIndividual RegistrationType = "individual"
	TypeGroup      RegistrationType = "group"
	TypeSocial     RegistrationType = "social"
	TypeUnknown    RegistrationType = ""
)

// ParseType 解析报名类型，未知取值返回 TypeUnknown
func ParseType(s string) RegistrationType {
	switch t := RegistrationType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeTeam, TypeIndividual, TypeGroup, TypeSocial:
		return t
	}
	return TypeUnknown
}

// Label 类型的意大利语名称（邮件、导出使用）
func (t RegistrationType) Label() string {
	switch t {
	case TypeTeam:
		return "Iscrizione Squadra"
	case TypeIndividual:
		return "Iscrizione Individuale"
	case TypeGroup:
		return "Iscrizione Gruppo"
	case TypeSocial:
		return "Solo Conviviale"
	}
	return "Iscrizione"
}

// SocialMode 队伍/小组的聚餐参与方式
type SocialMode string

const (
	SocialAll  SocialMode = "all"
	SocialSome SocialMode = "some"
	SocialNone SocialMode = "none"
)

// AgeBands 合法年龄段，按顺序排列
var AgeBands = []string{"A", "B", "C", "D"}

// IsAgeBand 判断是否为合法年龄段
func IsAgeBand(s string) bool {
	for _, b := range AgeBands {
		if s == b {
			return true
		}
	}
	return false
}

// Person 规范化后的单个人员
type Person struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	AgeBand       string // A-D 或空
	AttendsSocial bool
	FoodNotes     string
}

// FullName trim(first + " " + last)
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// sameAs 按姓名（忽略大小写）或邮箱判断是否为同一人
func (p Person) sameAs(o Person) bool {
	if p.Email != "" && strings.EqualFold(p.Email, o.Email) {
		return true
	}
	return p.FirstName != "" && p.LastName != "" &&
		strings.EqualFold(p.FirstName, o.FirstName) &&
		strings.EqualFold(p.LastName, o.LastName)
}

// Referente 报名负责人
type Referente struct {
	Person
	AcceptedRules   bool
	AcceptedPrivacy bool
}

// Transport 交通/拼车信息
type Transport struct {
	Mode         string // none | seek | offer
	Location     string
	SeatsOffered int
	SeatsNeeded  int
}

// ── 按类型区分的载荷变体 ──

// Entry 报名类型专属数据；仅由本包内的四种变体实现
type Entry interface {
	entryType() RegistrationType
}

// Roster 队伍与小组共用的成员名单
type Roster struct {
	Players    []Person
	SocialMode SocialMode
	// ReferenteSocial 负责人不在名单中但单独报名聚餐
	ReferenteSocial bool
}

// TeamEntry type=team
type TeamEntry struct {
	Name           string
	Color          string
	ColorPrefs     []string
	BannerProvider string
	BannerNotes    string
	Roster
}

// GroupEntry type=group
type GroupEntry struct {
	Roster
}

// IndividualEntry type=individual
type IndividualEntry struct {
	AttendsSocial bool
	// SocialAnswered social.mode 已填写（无论是否参加）
	SocialAnswered bool
}

// SocialEntry type=social
type SocialEntry struct {
	Guests []Person
}

func (*TeamEntry) entryType() RegistrationType       { return TypeTeam }
func (*GroupEntry) entryType() RegistrationType      { return TypeGroup }
func (*IndividualEntry) entryType() RegistrationType { return TypeIndividual }
func (*SocialEntry) entryType() RegistrationType     { return TypeSocial }

// Normalized 规范化后的报名
// Entry 为 nil 当且仅当 Type 为 TypeUnknown
type Normalized struct {
	Type      RegistrationType
	Referente Referente
	Donation  decimal.Decimal
	FoodNotes string
	Transport Transport
	Entry     Entry
}

// Team 返回队伍数据
func (n *Normalized) Team() (*TeamEntry, bool) {
	e, ok := n.Entry.(*TeamEntry)
	return e, ok
}

// Roster 返回队伍或小组的成员名单
func (n *Normalized) Roster() (*Roster, bool) {
	switch e := n.Entry.(type) {
	case *TeamEntry:
		return &e.Roster, true
	case *GroupEntry:
		return &e.Roster, true
	}
	return nil, false
}

// referenteOffRoster 负责人不在名单中且单独报名聚餐时返回 true
func (n *Normalized) referenteOffRoster(r *Roster) bool {
	if !r.ReferenteSocial || r.SocialMode == SocialNone {
		return false
	}
	for _, p := range r.Players {
		if p.sameAs(n.Referente.Person) {
			return false
		}
	}
	return true
}

// Participants 需要落库的参与者：
// team/group 为名单成员（外加单独报名聚餐的负责人），individual 为负责人本人，social 为全部聚餐人员
func (n *Normalized) Participants() []Person {
	switch e := n.Entry.(type) {
	case *TeamEntry, *GroupEntry:
		r, _ := n.Roster()
		out := make([]Person, 0, len(r.Players)+1)
		out = append(out, r.Players...)
		if n.referenteOffRoster(r) {
			ref := n.Referente.Person
			ref.AttendsSocial = true
			ref.FoodNotes = n.FoodNotes
			out = append(out, ref)
		}
		return out
	case *IndividualEntry:
		ref := n.Referente.Person
		ref.AttendsSocial = e.AttendsSocial
		ref.FoodNotes = n.FoodNotes
		return []Person{ref}
	case *SocialEntry:
		return append([]Person(nil), e.Guests...)
	}
	return nil
}

// Counts 计费人数：gameCount 为参赛人数，socialCount 为聚餐人数
func (n *Normalized) Counts() (gameCount, socialCount int) {
	switch e := n.Entry.(type) {
	case *TeamEntry, *GroupEntry:
		r, _ := n.Roster()
		gameCount = len(r.Players)
		for _, p := range r.Players {
			if p.AttendsSocial {
				socialCount++
			}
		}
		if n.referenteOffRoster(r) {
			socialCount++
		}
	case *IndividualEntry:
		gameCount = 1
		if e.AttendsSocial {
			socialCount = 1
		}
	case *SocialEntry:
		socialCount = len(e.Guests)
	}
	return gameCount, socialCount
}
