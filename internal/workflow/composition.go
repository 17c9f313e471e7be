package workflow

import "fmt"

// 队伍/小组人数与年龄段规则
const (
	TeamMinPlayers  = 6
	TeamMaxPlayers  = 12
	TeamMinBands    = 3
	TeamMinPerBand  = 2
	GroupMinPlayers = 2
	GroupMaxPlayers = 5
)

// Composition 构成校验结果
// 通过时 BandCounts 为各年龄段人数，不通过时 Violations 为逐条提示
type Composition struct {
	Valid      bool           `json:"valid"`
	BandCounts map[string]int `json:"band_counts,omitempty"`
	Violations []string       `json:"violations,omitempty"`
}

// ValidateComposition 校验队伍/小组构成，其余类型直接通过。
// 只在提交时执行，不是数据库约束；前端可用作提示，但服务端在落库前必须再执行一次。
func ValidateComposition(typ RegistrationType, bands []string) Composition {
	switch typ {
	case TypeTeam:
		return validateTeam(bands)
	case TypeGroup:
		return validateGroup(bands)
	}
	return Composition{Valid: true}
}

// CompositionOf 基于规范化报名执行构成校验
func CompositionOf(n *Normalized) Composition {
	r, ok := n.Roster()
	if !ok {
		return ValidateComposition(n.Type, nil)
	}
	bands := make([]string, len(r.Players))
	for i, p := range r.Players {
		bands[i] = p.AgeBand
	}
	return ValidateComposition(n.Type, bands)
}

func validateTeam(bands []string) Composition {
	var violations []string

	if len(bands) < TeamMinPlayers || len(bands) > TeamMaxPlayers {
		violations = append(violations, fmt.Sprintf(
			"La squadra deve avere tra %d e %d partecipanti.", TeamMinPlayers, TeamMaxPlayers))
	}

	counts := countBands(bands)
	if len(counts) < TeamMinBands {
		violations = append(violations, fmt.Sprintf(
			"La squadra deve avere almeno %d fasce d'età diverse.", TeamMinBands))
	}
	for _, b := range AgeBands {
		if n, ok := counts[b]; ok && n < TeamMinPerBand {
			violations = append(violations, fmt.Sprintf(
				"Fascia %s: servono almeno %d partecipanti (presenti: %d).", b, TeamMinPerBand, n))
		}
	}

	if len(violations) > 0 {
		return Composition{Valid: false, Violations: violations}
	}
	return Composition{Valid: true, BandCounts: counts}
}

func validateGroup(bands []string) Composition {
	if len(bands) < GroupMinPlayers || len(bands) > GroupMaxPlayers {
		return Composition{Valid: false, Violations: []string{fmt.Sprintf(
			"Il gruppo deve avere tra %d e %d partecipanti.", GroupMinPlayers, GroupMaxPlayers)}}
	}
	return Composition{Valid: true, BandCounts: countBands(bands)}
}

// countBands 统计合法年龄段，空值与非法值不计入
func countBands(bands []string) map[string]int {
	counts := make(map[string]int, len(AgeBands))
	for _, b := range bands {
		if IsAgeBand(b) {
			counts[b]++
		}
	}
	return counts
}
