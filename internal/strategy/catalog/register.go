package catalog

import (
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

// RegisterAll wires every strategy family the catalog implements into
// registry, keyed by strategy_type as referenced from a symbol's
// strategy_id config block. A1-A7 are individually bespoke; A8-A35 share
// one generic single-indicator state machine, each registered under its
// own strategy_type with a fixed indicator/threshold configuration, still
// independently tunable via its strategy_id's Params.
func RegisterAll(registry *strategy.Registry) {
	registry.Register("a1_momentum_reversal", newMomentumReversal)
	registry.Register("a2_zscore_mean_reversion", newZScore)
	registry.Register("a3_dual_ma_volume", newDualMAVolume)
	registry.Register("a4_pullback", newPullback)
	registry.Register("a5_multifactor", newMultifactor)
	registry.Register("a6_news_sentiment", newNewsTrading)
	registry.Register("a7_cta_trend", newCTATrend)

	registry.Register("a8_rsi_reversal", newGenericVariant(
		types.SignalReversalEntry, rsiDetect(14, 30, 70), "RSI(14) oversold/overbought reversal"))
	registry.Register("a9_macd_cross", newGenericVariant(
		types.SignalMomentumEntry, macdDetect(), "MACD(12,26,9) signal-line cross"))
	registry.Register("a10_bollinger_breakout", newGenericVariant(
		types.SignalBBUpperBreakout, bollingerDetect(20, 2.0, true), "Bollinger(20,2) band breakout"))
	registry.Register("a11_bollinger_reversion", newGenericVariant(
		types.SignalBBLowerBreakout, bollingerDetect(20, 2.0, false), "Bollinger(20,2) band mean reversion"))
	registry.Register("a12_ma_cross_sma", newGenericVariant(
		types.SignalMAGoldenCross, maCrossDetect(20, 50, false), "SMA(20/50) cross"))
	registry.Register("a13_ma_cross_ema", newGenericVariant(
		types.SignalMAGoldenCross, maCrossDetect(12, 26, true), "EMA(12/26) cross"))
	registry.Register("a14_stoch_rsi", newGenericVariant(
		types.SignalReversalEntry, stochRSIDetect(14, 14, 20, 80), "StochRSI(14,14) oversold/overbought"))
	registry.Register("a15_ema_cross_fast", newGenericVariant(
		types.SignalMAGoldenCross, maCrossDetect(5, 13, true), "fast EMA(5/13) cross"))
	registry.Register("a16_rsi_trendline", newGenericVariant(
		types.SignalReversalEntry, rsiTrendlineDetect(14, 10), "RSI(14) trendline break"))
	registry.Register("a17_pairs_proxy", newGenericVariant(
		types.SignalZScoreOversold, pairsProxyDetect(30, 2.0), "single-instrument pairs/cointegration proxy"))
	registry.Register("a18_roc_momentum", newGenericVariant(
		types.SignalMomentumEntry, rocDetect(10, 5.0), "ROC(10) momentum threshold cross"))
	registry.Register("a19_cci_reversal", newGenericVariant(
		types.SignalReversalEntry, cciDetect(20, -100, 100), "CCI(20) oversold/overbought"))
	registry.Register("a20_donchian_breakout", newGenericVariant(
		types.SignalMomentumEntry, donchianBreakoutDetect(55), "Donchian(55) breakout, no trend filter"))
	registry.Register("a21_supertrend", newGenericVariant(
		types.SignalTrailingStop, superTrendDetect(10, 3.0), "SuperTrend(10,3) flip"))
	registry.Register("a22_aroon_cross", newGenericVariant(
		types.SignalMomentumEntry, aroonDetect(25), "Aroon(25) up/down cross"))
	registry.Register("a23_ultimate_oscillator", newGenericVariant(
		types.SignalReversalEntry, ultimateDetect(30, 70), "Ultimate Oscillator(7,14,28) reversal"))
	registry.Register("a24_williams_r", newGenericVariant(
		types.SignalReversalEntry, williamsRDetect(14, -80, -20), "Williams %R(14) reversal"))
	registry.Register("a25_minervini_template", newGenericVariant(
		types.SignalMomentumEntry, minerviniDetect(), "Minervini trend template qualification"))
	registry.Register("a26_tsi_cross", newGenericVariant(
		types.SignalMomentumEntry, tsiDetect(25, 13, 7), "TSI(25,13) signal-line cross"))
	registry.Register("a27_stochastic_classic", newGenericVariant(
		types.SignalReversalEntry, stochasticDetect(14, 3, 20, 80), "classic Stochastic %K/%D"))
	registry.Register("a28_anomaly_detection", newAnomalyDetection)
	registry.Register("a29_relative_strength", newGenericVariant(
		types.SignalMomentumEntry, rsRatingDetect(60, 10.0), "relative-strength rating proxy"))
	registry.Register("a30_mfi_reversal", newGenericVariant(
		types.SignalReversalEntry, mfiDetect(14, 20, 80), "MFI(14) oversold/overbought"))
	registry.Register("a31_keltner_breakout", newGenericVariant(
		types.SignalBBUpperBreakout, keltnerDetect(20, 2.0), "Keltner(20,2) band breakout"))
	registry.Register("a32_pivot_points", newGenericVariant(
		types.SignalReversalEntry, pivotDetect(), "classic pivot R1/S1 break"))
	registry.Register("a33_linear_regression", newGenericVariant(
		types.SignalReversalEntry, linRegDetect(30, 0.02), "linear-regression projection deviation"))
	registry.Register("a34_mlp_regressor_proxy", newGenericVariant(
		types.SignalReversalEntry, mlpRegressorDetect(30, 0.02), "regressor-projection deviation (linear-regression proxy)"))
	registry.Register("a35_macd_histogram", newGenericVariant(
		types.SignalMomentumEntry, macdHistogramDetect(12, 26, 9), "MACD(12,26,9) histogram zero-cross"))
}
