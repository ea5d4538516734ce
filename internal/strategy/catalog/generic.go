package catalog

import (
	"fmt"
	"math"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

// detectFunc computes one strategy's entry condition on the last closed
// bar. It returns ok=false when no actionable zone was entered.
type detectFunc func(bars types.BarSeries, p map[string]interface{}) (action types.Action, confidence float64, reason string, ok bool)

// genericSingleIndicator is the A8-A35 family: every variant follows
// spec's shared shape (compute indicator, detect entry on last-bar
// crossing into an actionable zone, gate on volume/price filters via
// strategy.State.PassesFilters upstream, produce a signal with a
// deterministic confidence). Only the detect function differs per
// variant; bespoke exits are not implemented here, each variant relies
// solely on the generic exit policy in base.go.
type genericSingleIndicator struct {
	baseStrategy
	signalType types.SignalType
	detect     detectFunc
}

func newGenericVariant(signalType types.SignalType, detect detectFunc, description string) strategy.Factory {
	return func(id string, cfg config.StrategyConfig) strategy.Strategy {
		return &genericSingleIndicator{
			baseStrategy: baseStrategy{id: id, description: description, cfg: cfg},
			signalType:   signalType,
			detect:       detect,
		}
	}
}

func (g *genericSingleIndicator) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	action, confidence, reason, ok := g.detect(bars, g.params())
	if !ok {
		return nil, nil
	}
	last, _ := bars.Last()
	s := entrySignal(symbol, g.signalType, action, last.Close, confidence, reason, last.Timestamp)
	return []types.Signal{s}, nil
}

// crossUp reports whether prev <= level < cur, a last-bar upward cross of
// level.
func crossUp(prev, cur, level float64) bool { return prev <= level && cur > level }

// crossDown reports whether prev >= level > cur, a last-bar downward cross
// of level.
func crossDown(prev, cur, level float64) bool { return prev >= level && cur < level }

func rsiDetect(period int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		rsi := indicators.RSI(closes, period)
		i := lastIdx(len(closes))
		lo := paramFloat(p, "oversold", oversold)
		hi := paramFloat(p, "overbought", overbought)
		if crossUp(rsi[i-1], rsi[i], lo) {
			return types.ActionBuy, confidenceFromDistance(rsi[i], lo), fmt.Sprintf("RSI(%d) crossed above oversold %.0f", period, lo), true
		}
		if crossDown(rsi[i-1], rsi[i], hi) {
			return types.ActionSell, confidenceFromDistance(rsi[i], hi), fmt.Sprintf("RSI(%d) crossed below overbought %.0f", period, hi), true
		}
		return "", 0, "", false
	}
}

func macdDetect() detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < 35 {
			return "", 0, "", false
		}
		fast := paramInt(p, "fast", 12)
		slow := paramInt(p, "slow", 26)
		signal := paramInt(p, "signal", 9)
		line, sig, _ := indicators.MACD(closes, fast, slow, signal)
		i := lastIdx(len(closes))
		if crossUp(line[i-1]-sig[i-1], line[i]-sig[i], 0) {
			return types.ActionBuy, confidenceFromDistance(line[i]-sig[i], 0), "MACD crossed above signal line", true
		}
		if crossDown(line[i-1]-sig[i-1], line[i]-sig[i], 0) {
			return types.ActionSell, confidenceFromDistance(line[i]-sig[i], 0), "MACD crossed below signal line", true
		}
		return "", 0, "", false
	}
}

func bollingerDetect(period int, k float64, breakout bool) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < period+1 {
			return "", 0, "", false
		}
		upper, _, lower := indicators.BollingerBands(closes, period, k)
		i := lastIdx(len(closes))
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) {
			return "", 0, "", false
		}
		if breakout {
			if crossUp(closes[i-1], closes[i], upper[i]) {
				return types.ActionBuy, confidenceFromDistance(closes[i], upper[i]), "closed above upper Bollinger band", true
			}
			if crossDown(closes[i-1], closes[i], lower[i]) {
				return types.ActionSell, confidenceFromDistance(closes[i], lower[i]), "closed below lower Bollinger band", true
			}
			return "", 0, "", false
		}
		if closes[i] <= lower[i] {
			return types.ActionBuy, confidenceFromDistance(closes[i], lower[i]), "touched lower Bollinger band", true
		}
		if closes[i] >= upper[i] {
			return types.ActionSell, confidenceFromDistance(closes[i], upper[i]), "touched upper Bollinger band", true
		}
		return "", 0, "", false
	}
}

func maCrossDetect(fastN, slowN int, exponential bool) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < slowN+1 {
			return "", 0, "", false
		}
		var fast, slow []float64
		if exponential {
			fast, slow = indicators.EMA(closes, fastN), indicators.EMA(closes, slowN)
		} else {
			fast, slow = indicators.SMA(closes, fastN), indicators.SMA(closes, slowN)
		}
		i := lastIdx(len(closes))
		if fast[i-1] == 0 || slow[i-1] == 0 {
			return "", 0, "", false
		}
		if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
			return types.ActionBuy, 0.75, fmt.Sprintf("MA(%d) crossed above MA(%d)", fastN, slowN), true
		}
		if fast[i-1] >= slow[i-1] && fast[i] < slow[i] {
			return types.ActionSell, 0.75, fmt.Sprintf("MA(%d) crossed below MA(%d)", fastN, slowN), true
		}
		return "", 0, "", false
	}
}

func stochRSIDetect(rsiN, stochN int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < rsiN+stochN+2 {
			return "", 0, "", false
		}
		st := indicators.StochRSI(closes, rsiN, stochN)
		i := lastIdx(len(closes))
		if crossUp(st[i-1], st[i], oversold) {
			return types.ActionBuy, confidenceFromDistance(st[i], oversold), "StochRSI crossed up from oversold", true
		}
		if crossDown(st[i-1], st[i], overbought) {
			return types.ActionSell, confidenceFromDistance(st[i], overbought), "StochRSI crossed down from overbought", true
		}
		return "", 0, "", false
	}
}

// rsiTrendlineDetect fires when RSI's own short-window linear regression
// slope flips sign, a "trendline break" on the oscillator itself.
func rsiTrendlineDetect(rsiN, window int) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < rsiN+window+2 {
			return "", 0, "", false
		}
		rsi := indicators.RSI(closes, rsiN)
		i := lastIdx(len(closes))
		slopeNow, _, _ := indicators.LinearRegression(rsi[:i+1], window)
		slopePrev, _, _ := indicators.LinearRegression(rsi[:i], window)
		if slopePrev <= 0 && slopeNow > 0 {
			return types.ActionBuy, confidenceFromDistance(slopeNow, 0), "RSI trendline slope turned positive", true
		}
		if slopePrev >= 0 && slopeNow < 0 {
			return types.ActionSell, confidenceFromDistance(slopeNow, 0), "RSI trendline slope turned negative", true
		}
		return "", 0, "", false
	}
}

// pairsProxyDetect approximates a pairs/cointegration signal with a
// z-score of price against its own long-run mean, since the pack carries
// no second-instrument feed to form a genuine spread; this is a
// deliberate single-instrument proxy, not a real cointegration test.
func pairsProxyDetect(window int, entry float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < window+1 {
			return "", 0, "", false
		}
		zs := indicators.ZScore(closes, window)
		i := lastIdx(len(closes))
		if zs[i] <= -entry {
			return types.ActionBuy, confidenceFromDistance(zs[i], -entry), "spread-proxy z-score oversold", true
		}
		if zs[i] >= entry {
			return types.ActionSell, confidenceFromDistance(zs[i], entry), "spread-proxy z-score overbought", true
		}
		return "", 0, "", false
	}
}

func rocDetect(period int, threshold float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		roc := indicators.ROC(closes, period)
		i := lastIdx(len(closes))
		if crossUp(roc[i-1], roc[i], threshold) {
			return types.ActionBuy, confidenceFromDistance(roc[i], threshold), fmt.Sprintf("ROC(%d) crossed above %.1f%%", period, threshold), true
		}
		if crossDown(roc[i-1], roc[i], -threshold) {
			return types.ActionSell, confidenceFromDistance(roc[i], -threshold), fmt.Sprintf("ROC(%d) crossed below %.1f%%", period, -threshold), true
		}
		return "", 0, "", false
	}
}

func cciDetect(period int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		cci := indicators.CCI(highs, lows, closes, period)
		i := lastIdx(len(closes))
		if crossUp(cci[i-1], cci[i], oversold) {
			return types.ActionBuy, confidenceFromDistance(cci[i], oversold), "CCI crossed up from oversold", true
		}
		if crossDown(cci[i-1], cci[i], overbought) {
			return types.ActionSell, confidenceFromDistance(cci[i], overbought), "CCI crossed down from overbought", true
		}
		return "", 0, "", false
	}
}

func superTrendDetect(period int, factor float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		_, dir := indicators.SuperTrend(highs, lows, closes, period, factor)
		i := lastIdx(len(closes))
		if dir[i-1] <= 0 && dir[i] > 0 {
			return types.ActionBuy, 0.8, "SuperTrend flipped bullish", true
		}
		if dir[i-1] >= 0 && dir[i] < 0 {
			return types.ActionSell, 0.8, "SuperTrend flipped bearish", true
		}
		return "", 0, "", false
	}
}

func aroonDetect(period int) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		if len(highs) < period+2 {
			return "", 0, "", false
		}
		up, down := indicators.Aroon(highs, lows, period)
		i := lastIdx(len(highs))
		if up[i-1] <= down[i-1] && up[i] > down[i] {
			return types.ActionBuy, confidenceFromDistance(up[i]-down[i], 0), "Aroon-up crossed above Aroon-down", true
		}
		if up[i-1] >= down[i-1] && up[i] < down[i] {
			return types.ActionSell, confidenceFromDistance(down[i]-up[i], 0), "Aroon-down crossed above Aroon-up", true
		}
		return "", 0, "", false
	}
}

func ultimateDetect(oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		if len(closes) < 30 {
			return "", 0, "", false
		}
		uo := indicators.UltimateOscillator(highs, lows, closes, 7, 14, 28)
		i := lastIdx(len(closes))
		if crossUp(uo[i-1], uo[i], oversold) {
			return types.ActionBuy, confidenceFromDistance(uo[i], oversold), "Ultimate Oscillator crossed up from oversold", true
		}
		if crossDown(uo[i-1], uo[i], overbought) {
			return types.ActionSell, confidenceFromDistance(uo[i], overbought), "Ultimate Oscillator crossed down from overbought", true
		}
		return "", 0, "", false
	}
}

func williamsRDetect(period int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		wr := indicators.WilliamsR(highs, lows, closes, period)
		i := lastIdx(len(closes))
		if crossUp(wr[i-1], wr[i], oversold) {
			return types.ActionBuy, confidenceFromDistance(wr[i], oversold), "Williams %R crossed up from oversold", true
		}
		if crossDown(wr[i-1], wr[i], overbought) {
			return types.ActionSell, confidenceFromDistance(wr[i], overbought), "Williams %R crossed down from overbought", true
		}
		return "", 0, "", false
	}
}

// minerviniDetect approximates the Minervini trend template: price above a
// rising MA50 which sits above MA150/MA200, and within 25% of the trailing
// lookback high, the entry trigger on first qualifying bar.
func minerviniDetect() detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < 201 {
			return "", 0, "", false
		}
		ma50 := indicators.SMA(closes, 50)
		ma150 := indicators.SMA(closes, 150)
		ma200 := indicators.SMA(closes, 200)
		i := lastIdx(len(closes))
		hi := closes[0]
		for _, c := range closes {
			if c > hi {
				hi = c
			}
		}
		template := closes[i] > ma50[i] && ma50[i] > ma150[i] && ma150[i] > ma200[i] &&
			i > 0 && ma50[i] >= ma50[i-1] && closes[i] >= hi*0.75
		templatePrev := closes[i-1] > ma50[i-1] && ma50[i-1] > ma150[i-1] && ma150[i-1] > ma200[i-1]
		if template && !templatePrev {
			return types.ActionBuy, 0.8, "Minervini trend template qualified", true
		}
		return "", 0, "", false
	}
}

// tsiDetect computes the True Strength Index via double-smoothed momentum
// and its signal line, firing on the signal-line cross.
func tsiDetect(long, short, signalN int) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < long+short+signalN+2 {
			return "", 0, "", false
		}
		mom := make([]float64, len(closes))
		absMom := make([]float64, len(closes))
		for i := 1; i < len(closes); i++ {
			mom[i] = closes[i] - closes[i-1]
			absMom[i] = absF(mom[i])
		}
		smoothMom := indicators.EMA(indicators.EMA(mom, long), short)
		smoothAbs := indicators.EMA(indicators.EMA(absMom, long), short)
		tsi := make([]float64, len(closes))
		for i := range closes {
			if smoothAbs[i] != 0 {
				tsi[i] = 100 * smoothMom[i] / smoothAbs[i]
			}
		}
		signal := indicators.EMA(tsi, signalN)
		i := lastIdx(len(closes))
		if crossUp(tsi[i-1]-signal[i-1], tsi[i]-signal[i], 0) {
			return types.ActionBuy, confidenceFromDistance(tsi[i], signal[i]), "TSI crossed above its signal line", true
		}
		if crossDown(tsi[i-1]-signal[i-1], tsi[i]-signal[i], 0) {
			return types.ActionSell, confidenceFromDistance(signal[i], tsi[i]), "TSI crossed below its signal line", true
		}
		return "", 0, "", false
	}
}

// stochasticDetect computes the classic %K/%D stochastic oscillator.
func stochasticDetect(period, smoothN int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		if len(closes) < period+smoothN+2 {
			return "", 0, "", false
		}
		upper, _, lower := indicators.Donchian(highs, lows, period)
		k := make([]float64, len(closes))
		for i := range closes {
			rng := upper[i] - lower[i]
			if rng == 0 {
				continue
			}
			k[i] = (closes[i] - lower[i]) / rng * 100
		}
		d := indicators.SMA(k, smoothN)
		i := lastIdx(len(closes))
		if crossUp(k[i-1], k[i], oversold) && k[i] > d[i] {
			return types.ActionBuy, confidenceFromDistance(k[i], oversold), "Stochastic %K crossed up from oversold above %D", true
		}
		if crossDown(k[i-1], k[i], overbought) && k[i] < d[i] {
			return types.ActionSell, confidenceFromDistance(k[i], overbought), "Stochastic %K crossed down from overbought below %D", true
		}
		return "", 0, "", false
	}
}

// rsRatingDetect proxies a relative-strength rating with a long-window ROC
// crossing a fixed ±threshold; no percentile ranking is computed and no
// market-wide universe is available to rank against in this repo.
func rsRatingDetect(window int, threshold float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < window+2 {
			return "", 0, "", false
		}
		roc := indicators.ROC(closes, window)
		i := lastIdx(len(closes))
		if crossUp(roc[i-1], roc[i], threshold) {
			return types.ActionBuy, confidenceFromDistance(roc[i], threshold), fmt.Sprintf("relative-strength proxy crossed above %.0f", threshold), true
		}
		if crossDown(roc[i-1], roc[i], -threshold) {
			return types.ActionSell, confidenceFromDistance(roc[i], -threshold), fmt.Sprintf("relative-strength proxy crossed below %.0f", -threshold), true
		}
		return "", 0, "", false
	}
}

func mfiDetect(period int, oversold, overbought float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		vol := bars.Volumes()
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		mfi := indicators.MFI(highs, lows, closes, vol, period)
		i := lastIdx(len(closes))
		if crossUp(mfi[i-1], mfi[i], oversold) {
			return types.ActionBuy, confidenceFromDistance(mfi[i], oversold), "MFI crossed up from oversold", true
		}
		if crossDown(mfi[i-1], mfi[i], overbought) {
			return types.ActionSell, confidenceFromDistance(mfi[i], overbought), "MFI crossed down from overbought", true
		}
		return "", 0, "", false
	}
}

func keltnerDetect(period int, multiple float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		upper, _, lower := indicators.Keltner(highs, lows, closes, period, multiple)
		i := lastIdx(len(closes))
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) {
			return "", 0, "", false
		}
		if crossUp(closes[i-1], closes[i], upper[i]) {
			return types.ActionBuy, confidenceFromDistance(closes[i], upper[i]), "closed above upper Keltner band", true
		}
		if crossDown(closes[i-1], closes[i], lower[i]) {
			return types.ActionSell, confidenceFromDistance(closes[i], lower[i]), "closed below lower Keltner band", true
		}
		return "", 0, "", false
	}
}

// pivotDetect fires when price crosses the prior bar's classic pivot R1/S1
// band.
func pivotDetect() detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		if len(bars) < 3 {
			return "", 0, "", false
		}
		i := len(bars) - 1
		prior := bars[i-1]
		pivot := indicators.ClassicPivot(priceFloat(prior.High), priceFloat(prior.Low), priceFloat(prior.Close))
		cur := priceFloat(bars[i].Close)
		prev := priceFloat(bars[i-1].Close)
		if crossUp(prev, cur, pivot.R1) {
			return types.ActionBuy, 0.7, "broke above prior-session R1 pivot", true
		}
		if crossDown(prev, cur, pivot.S1) {
			return types.ActionSell, 0.7, "broke below prior-session S1 pivot", true
		}
		return "", 0, "", false
	}
}

// linRegDetect fires when price diverges from its own linear-regression
// projection by more than threshold, a deterministic mean-reversion
// trigger derived purely from the regression fit.
func linRegDetect(window int, threshold float64) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < window+1 {
			return "", 0, "", false
		}
		_, _, projected := indicators.LinearRegression(closes, window)
		i := lastIdx(len(closes))
		if projected == 0 {
			return "", 0, "", false
		}
		dev := (closes[i] - projected) / projected
		if dev <= -threshold {
			return types.ActionBuy, confidenceFromDistance(dev, -threshold), "price below regression projection", true
		}
		if dev >= threshold {
			return types.ActionSell, confidenceFromDistance(dev, threshold), "price above regression projection", true
		}
		return "", 0, "", false
	}
}

// donchianBreakoutDetect fires on a plain Donchian channel breakout, with no
// trend filter (unlike A7's CTA variant which requires MA50/MA200
// alignment).
func donchianBreakoutDetect(period int) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		highs := toFloats(bars.Highs())
		lows := toFloats(bars.Lows())
		closes := toFloats(bars.Closes())
		if len(closes) < period+2 {
			return "", 0, "", false
		}
		upper, _, lower := indicators.Donchian(highs, lows, period)
		i := lastIdx(len(closes))
		if crossUp(closes[i-1], closes[i], upper[i-1]) {
			return types.ActionBuy, confidenceFromDistance(closes[i], upper[i-1]), fmt.Sprintf("Donchian(%d) breakout", period), true
		}
		if crossDown(closes[i-1], closes[i], lower[i-1]) {
			return types.ActionSell, confidenceFromDistance(lower[i-1], closes[i]), fmt.Sprintf("Donchian(%d) breakdown", period), true
		}
		return "", 0, "", false
	}
}

// macdHistogramDetect fires on the MACD histogram's zero-cross. The
// histogram is the MACD line minus its signal line, so this cross lands on
// the same bar as the line/signal cross macdDetect watches.
func macdHistogramDetect(fast, slow, signal int) detectFunc {
	return func(bars types.BarSeries, p map[string]interface{}) (types.Action, float64, string, bool) {
		closes := toFloats(bars.Closes())
		if len(closes) < slow+signal+2 {
			return "", 0, "", false
		}
		_, _, hist := indicators.MACD(closes, fast, slow, signal)
		i := lastIdx(len(closes))
		if crossUp(hist[i-1], hist[i], 0) {
			return types.ActionBuy, confidenceFromDistance(hist[i], 0), "MACD histogram crossed above zero", true
		}
		if crossDown(hist[i-1], hist[i], 0) {
			return types.ActionSell, confidenceFromDistance(-hist[i], 0), "MACD histogram crossed below zero", true
		}
		return "", 0, "", false
	}
}

// mlpRegressorDetect stands in for the source system's MLP regressor.
// No ecosystem MLP/neural-net library is present anywhere in the pack, so
// rather than fabricate a dependency this reuses the linear-regression
// projection as the deterministic regressor output, documented as a
// simplification.
func mlpRegressorDetect(window int, threshold float64) detectFunc {
	return linRegDetect(window, threshold)
}
