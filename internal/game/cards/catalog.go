package cards

import "github.com/wfunc/monopoly-server/internal/game/board"

// 修缮费用
const (
	generalRepairHouse = 25
	generalRepairHotel = 100
	streetRepairHouse  = 40
	streetRepairHotel  = 115
)

// Catalog 返回指定牌堆的全部卡牌（未洗牌的新副本）
func Catalog(kind DeckKind) []Card {
	var src []Card
	switch kind {
	case Chance:
		src = chanceCards()
	case CommunityChest:
		src = communityChestCards()
	}
	for i := range src {
		src[i].ID = i
		src[i].Deck = kind
	}
	return src
}

func chanceCards() []Card {
	const nearestStation = "Advance to the nearest Station. If unowned, you may buy it from the Bank. " +
		"If owned, pay owner twice the rental to which they are otherwise entitled"

	return []Card{
		{Text: "Advance to Go (Collect £200)", Category: CategoryMove, effect: advanceTo(board.GoField)},
		{Text: "Advance to Trafalgar Square. If you pass Go, collect £200", Category: CategoryMove, effect: advanceTo(24)},
		{Text: "Advance to Mayfair", Category: CategoryMove, effect: advanceTo(39)},
		{Text: "Advance to Pall Mall. If you pass Go, collect £200", Category: CategoryMove, effect: advanceTo(11)},
		{Text: nearestStation, Category: CategoryMove, SpecialRent: RentDouble, effect: advanceToNearest(board.KindRailroad)},
		{Text: nearestStation, Category: CategoryMove, SpecialRent: RentDouble, effect: advanceToNearest(board.KindRailroad)},
		{
			Text: "Advance token to nearest Utility. If unowned, you may buy it from the Bank. " +
				"If owned, throw dice and pay owner a total ten times amount thrown",
			Category: CategoryMove, SpecialRent: RentTenTimesRoll, effect: advanceToNearest(board.KindUtility),
		},
		{Text: "Bank pays you dividend of £50", Category: CategoryCollect, effect: collect(50)},
		{Text: "Get Out of Jail Free", Category: CategoryGetOutOfJail, effect: getOutOfJail},
		{Text: "Go Back 3 Spaces", Category: CategoryMove, effect: goBack(3)},
		{
			Text:     "Go to Jail. Go directly to Jail, do not pass Go, do not collect £200",
			Category: CategoryGoToJail, EndsTurn: true, effect: goToJail,
		},
		{
			Text:     "Make general repairs on all your property. For each house pay £25. For each hotel pay £100",
			Category: CategoryPay, effect: repairs(generalRepairHouse, generalRepairHotel),
		},
		{Text: "Speeding fine £15", Category: CategoryPay, effect: pay(15)},
		{Text: "Take a trip to Kings Cross Station. If you pass Go, collect £200", Category: CategoryMove, effect: advanceTo(5)},
		{Text: "You have been elected Chairman of the Board. Pay each player £50", Category: CategoryPayEach, effect: payEach(50)},
		{Text: "Your building loan matures. Collect £150", Category: CategoryCollect, effect: collect(150)},
	}
}

func communityChestCards() []Card {
	return []Card{
		{Text: "Advance to Go (Collect £200)", Category: CategoryMove, effect: advanceTo(board.GoField)},
		{Text: "Bank error in your favour. Collect £200", Category: CategoryCollect, effect: collect(200)},
		{Text: "Doctor’s fee. Pay £50", Category: CategoryPay, effect: pay(50)},
		{Text: "From sale of stock you get £50", Category: CategoryCollect, effect: collect(50)},
		{Text: "Get Out of Jail Free", Category: CategoryGetOutOfJail, effect: getOutOfJail},
		{
			Text:     "Go to Jail. Go directly to jail, do not pass Go, do not collect £200",
			Category: CategoryGoToJail, EndsTurn: true, effect: goToJail,
		},
		{Text: "Holiday fund matures. Receive £100", Category: CategoryCollect, effect: collect(100)},
		{Text: "Income tax refund. Collect £20", Category: CategoryCollect, effect: collect(20)},
		{Text: "It is your birthday. Collect £10 from every player", Category: CategoryCollectFromEach, effect: collectFromEach(10)},
		{Text: "Life insurance matures. Collect £100", Category: CategoryCollect, effect: collect(100)},
		{Text: "Pay hospital fees of £100", Category: CategoryPay, effect: pay(100)},
		{Text: "Pay school fees of £50", Category: CategoryPay, effect: pay(50)},
		{Text: "Receive £25 consultancy fee", Category: CategoryCollect, effect: collect(25)},
		{
			Text:     "You are assessed for street repairs. £40 per house. £115 per hotel",
			Category: CategoryPay, effect: repairs(streetRepairHouse, streetRepairHotel),
		},
		{Text: "You have won second prize in a beauty contest. Collect £10", Category: CategoryCollect, effect: collect(10)},
		{Text: "You inherit £100", Category: CategoryCollect, effect: collect(100)},
	}
}

func advanceTo(field int) Effect {
	return func(t Table) error {
		return t.MoveTo(field, t.OnTurn(), true)
	}
}

func advanceToNearest(kind board.Kind) Effect {
	return func(t Table) error {
		player := t.OnTurn()
		dest, ok := t.NearestOfKind(t.Position(player), kind)
		if !ok {
			return nil
		}
		return t.MoveTo(dest, player, true)
	}
}

// goBack 后退不触发经过起点
func goBack(steps int) Effect {
	return func(t Table) error {
		return t.MoveBy(-steps, t.OnTurn(), false)
	}
}

func collect(amount int) Effect {
	return func(t Table) error {
		return t.Collect(amount, t.OnTurn())
	}
}

func pay(amount int) Effect {
	return func(t Table) error {
		return t.Pay(amount, t.OnTurn(), "")
	}
}

func payEach(amount int) Effect {
	return func(t Table) error {
		player := t.OnTurn()
		for _, other := range t.Opponents() {
			if err := t.Pay(amount, player, other); err != nil {
				return err
			}
		}
		return nil
	}
}

func collectFromEach(amount int) Effect {
	return func(t Table) error {
		player := t.OnTurn()
		for _, other := range t.Opponents() {
			if err := t.Pay(amount, other, player); err != nil {
				return err
			}
		}
		return nil
	}
}

func repairs(perHouse, perHotel int) Effect {
	return func(t Table) error {
		player := t.OnTurn()
		houses, hotels := t.CountImprovements(player)
		amount := perHouse*houses + perHotel*hotels
		if amount == 0 {
			return nil
		}
		return t.Pay(amount, player, "")
	}
}

func getOutOfJail(t Table) error {
	return t.GrantJailCard(t.OnTurn())
}

func goToJail(t Table) error {
	return t.SendToJail(t.OnTurn())
}
