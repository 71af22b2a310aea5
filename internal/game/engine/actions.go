package engine

import "slices"

// Verb 客户端动作
type Verb string

// 动作
const (
	ActionAddPlayer    Verb = "add_player"
	ActionUpdatePlayer Verb = "update_player"
	ActionStartGame    Verb = "start_game"
	ActionRoll         Verb = "roll"
	ActionBuy          Verb = "buy"
	ActionAuction      Verb = "auction"
	ActionPayout       Verb = "payout"
	ActionUseCard      Verb = "use_card"
	ActionEndTurn      Verb = "end_turn"
)

var knownVerbs = map[Verb]bool{
	ActionAddPlayer:    true,
	ActionUpdatePlayer: true,
	ActionStartGame:    true,
	ActionRoll:         true,
	ActionBuy:          true,
	ActionAuction:      true,
	ActionPayout:       true,
	ActionUseCard:      true,
	ActionEndTurn:      true,
}

// Known 是否为已知动作
func (v Verb) Known() bool {
	return knownVerbs[v]
}

// 动作参数键
const (
	ParamPlayerUUID = "player_uuid"
	ParamAttribute  = "attribute"
	ParamValue      = "value"
	ParamItem       = "item"
)

// Action 一次客户端动作。Actor 为内部玩家标识，由传输层分配。
type Action struct {
	Actor      string         `json:"-"`
	Verb       Verb           `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Perspective 计算可执行动作所需的全部输入
type Perspective struct {
	Stage        Stage
	IsHost       bool
	Seated       bool
	OnTurn       bool
	JailTurns    int
	JailCards    int
	MaxJailRolls int
}

// PossibleActions 某个请求者在当前阶段允许执行的动作，按名称排序
func PossibleActions(p Perspective) []Verb {
	var out []Verb
	switch {
	case p.IsHost:
		if p.Stage == StagePreGame {
			out = append(out, ActionAddPlayer)
		}
	case !p.Seated:
	case p.Stage == StagePreGame:
		out = append(out, ActionUpdatePlayer, ActionStartGame)
	case !p.OnTurn:
	default:
		switch p.Stage {
		case StageBeginTurn, StageRentRoll:
			out = append(out, ActionRoll)
		case StageInJail:
			out = append(out, ActionPayout)
			if p.JailCards > 0 {
				out = append(out, ActionUseCard)
			}
			if p.JailTurns < p.MaxJailRolls {
				out = append(out, ActionRoll)
			}
		case StageBuyingDecision:
			out = append(out, ActionBuy, ActionAuction)
		case StageEndTurn:
			out = append(out, ActionEndTurn)
		}
	}
	slices.Sort(out)
	return out
}

func verbNames(verbs []Verb) []string {
	out := make([]string, len(verbs))
	for i, v := range verbs {
		out[i] = string(v)
	}
	return out
}
