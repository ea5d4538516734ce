package catalog

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

// NewsProvider identifies which upstream news/sentiment feed a news
// strategy instance polls. Resolved from config via ParseNewsProvider,
// which defaults to ProviderAlphaVantage for any unrecognized string
// rather than silently falling through for a name it doesn't match.
type NewsProvider int

const (
	ProviderAlphaVantage NewsProvider = iota
	ProviderNewsAPI
	ProviderPolygon
)

func (p NewsProvider) String() string {
	switch p {
	case ProviderNewsAPI:
		return "newsapi"
	case ProviderPolygon:
		return "polygon"
	default:
		return "alphavantage"
	}
}

// ParseNewsProvider resolves a config string to a NewsProvider, defaulting
// to ProviderAlphaVantage for anything unrecognized.
func ParseNewsProvider(s string) NewsProvider {
	switch s {
	case "newsapi":
		return ProviderNewsAPI
	case "polygon":
		return ProviderPolygon
	default:
		return ProviderAlphaVantage
	}
}

// NewsItem is one headline with a scored sentiment and relevance.
type NewsItem struct {
	Symbol      string
	Sentiment   float64 // -1..1
	Relevance   float64 // 0..1
	PublishedAt time.Time
}

// NewsFeed fetches recent news for a symbol from one provider. The HTTP
// client for each provider lives outside this package; NewsFeed is the
// narrow seam the strategy depends on so it can be driven by a test double.
type NewsFeed interface {
	Recent(symbol string) ([]NewsItem, error)
}

// newsTrading is A6: polls a news/sentiment feed, scores recent impact,
// and enters when sentiment magnitude and short-window volatility both
// exceed threshold and relevance clears the minimum bar. Stale items
// (older than max_news_age_hours) are ignored entirely.
type newsTrading struct {
	baseStrategy
	feed     NewsFeed
	provider NewsProvider
}

func newNewsTrading(id string, cfg config.StrategyConfig) strategy.Strategy {
	provider := ParseNewsProvider(paramString(cfg.Params, "news_provider", "alphavantage"))
	return &newsTrading{
		baseStrategy: baseStrategy{id: id, description: "news/sentiment impact entry, provider: " + provider.String(), cfg: cfg},
		provider:     provider,
	}
}

// WithFeed binds a concrete NewsFeed implementation. cmd/engine does not
// call it, so an A6 instance built through the registry has no feed.
// Strategies built without a feed never emit a signal.
func (n *newsTrading) WithFeed(feed NewsFeed) *newsTrading {
	n.feed = feed
	return n
}

func (n *newsTrading) impactScore(items []NewsItem, maxAge time.Duration, now time.Time) (score, relevance float64, fresh int) {
	var sentSum, relSum float64
	for _, it := range items {
		if now.Sub(it.PublishedAt) > maxAge {
			continue
		}
		sentSum += it.Sentiment * it.Relevance
		relSum += it.Relevance
		fresh++
	}
	if fresh == 0 {
		return 0, 0, 0
	}
	return sentSum / float64(fresh), relSum / float64(fresh), fresh
}

func (n *newsTrading) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	if n.feed == nil {
		return nil, nil
	}
	closes := bars.Closes()
	if len(closes) < 21 {
		return nil, nil
	}
	items, err := n.feed.Recent(symbol)
	if err != nil {
		return nil, nil
	}
	p := n.params()
	maxAge := time.Duration(paramFloat(p, "max_news_age_hours", 24)) * time.Hour
	minRelevance := paramFloat(p, "min_relevance", 0.4)
	sentThresh := paramFloat(p, "sentiment_threshold", 0.3)
	volThresh := paramFloat(p, "volatility_threshold", 0.01)

	score, relevance, fresh := n.impactScore(items, maxAge, time.Now())
	if fresh == 0 || relevance < minRelevance {
		return nil, nil
	}

	floats := toFloats(closes)
	zs := indicators.ZScore(floats, 20)
	i := lastIdx(len(floats))
	vol := 0.0
	if !indicatorIsNaN(zs[i]) {
		vol = absF(zs[i]) / 10 // crude short-window volatility proxy from z-score dispersion
	}
	if vol < volThresh {
		return nil, nil
	}
	last, _ := bars.Last()
	if score >= sentThresh {
		s := entrySignal(symbol, types.SignalMomentumEntry, types.ActionBuy, last.Close,
			confidenceFromDistance(score, sentThresh), fmt.Sprintf("positive news impact %.2f, relevance %.2f", score, relevance), last.Timestamp)
		return []types.Signal{s}, nil
	}
	if score <= -sentThresh {
		s := entrySignal(symbol, types.SignalReversalEntry, types.ActionSell, last.Close,
			confidenceFromDistance(score, -sentThresh), fmt.Sprintf("negative news impact %.2f, relevance %.2f", score, relevance), last.Timestamp)
		return []types.Signal{s}, nil
	}
	return nil, nil
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func indicatorIsNaN(f float64) bool { return f != f }
