package game

import (
	"github.com/wfunc/monopoly-server/internal/config"
	"github.com/wfunc/monopoly-server/internal/game/engine"
)

// RulesFromConfig 把配置中的游戏规则转换为引擎规则
func RulesFromConfig(g config.GameConfig) engine.Rules {
	return engine.Rules{
		InitialCash:  g.InitialCash,
		InitialField: g.InitialField,
		GoCash:       g.GoCash,
		JailFine:     g.JailFine,
		MaxJailRolls: g.MaxJailRolls,
		MinPlayers:   g.MinPlayers,
		MaxPlayers:   g.MaxPlayers,
		DiceCount:    g.DiceCount,
		DiceSides:    g.DiceSides,
	}
}
