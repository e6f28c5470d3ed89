// Package classify maps raw whale events to display categories and splits
// event lists into before/during/after periods around an interval window.
// This logic is shared by every surface that presents events (API handlers,
// reports, exports) so the rules live in exactly one place.
package classify

import (
	"strings"

	"whale-activity-lab/internal/domain"
)

// Classify maps a whale event to its display category.
// Rules are evaluated in order, first match wins:
//  1. market_buy / market_sell event types
//  2. increase with bid/ask side
//  3. decrease with bid/ask side
//  4. event type mentions "bid", or side is bid
//  5. event type mentions "ask", or side is ask
//
// Anything else lands in CategoryOther. Classification depends only on
// (event_type, side), so the same pair always yields the same category.
func Classify(e domain.WhaleEvent) domain.Category {
	switch e.EventType {
	case domain.EventTypeMarketBuy:
		return domain.CategoryMarketBuy
	case domain.EventTypeMarketSell:
		return domain.CategoryMarketSell
	case domain.EventTypeIncrease:
		switch e.Side {
		case domain.SideBid:
			return domain.CategoryBidIncrease
		case domain.SideAsk:
			return domain.CategoryAskIncrease
		}
	case domain.EventTypeDecrease:
		switch e.Side {
		case domain.SideBid:
			return domain.CategoryBidDecrease
		case domain.SideAsk:
			return domain.CategoryAskDecrease
		}
	}

	if strings.Contains(e.EventType, "bid") || e.Side == domain.SideBid {
		return domain.CategoryNewBid
	}
	if strings.Contains(e.EventType, "ask") || e.Side == domain.SideAsk {
		return domain.CategoryNewAsk
	}

	return domain.CategoryOther
}

// ByCategory groups events by their category. Every event appears in
// exactly one group, so the groups partition the input.
func ByCategory(events []domain.WhaleEvent) map[domain.Category][]domain.WhaleEvent {
	groups := make(map[domain.Category][]domain.WhaleEvent)
	for _, e := range events {
		c := Classify(e)
		groups[c] = append(groups[c], e)
	}
	return groups
}
