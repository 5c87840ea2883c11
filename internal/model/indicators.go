package model

// EnrichedBar is an OHLCV bar together with the technical indicators derived from it.
// Indicators that lack history are NaN.
type EnrichedBar struct {
	Candle

	BBUpper     float64 `json:"bb_upper"`
	BBMiddle    float64 `json:"bb_middle"`
	BBLower     float64 `json:"bb_lower"`
	BBBandwidth float64 `json:"bb_bandwidth"`
	BBPercent   float64 `json:"bb_percent"`

	KCUpper  float64 `json:"kc_upper"`
	KCMiddle float64 `json:"kc_middle"`
	KCLower  float64 `json:"kc_lower"`

	ATR float64 `json:"atr"`
	RSI float64 `json:"rsi"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	StochRSIK float64 `json:"stoch_rsi_k"`
	StochRSID float64 `json:"stoch_rsi_d"`

	Squeeze bool `json:"squeeze_on"`
}
