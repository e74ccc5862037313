package finnhub

// quoteResponse is the /quote payload
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// empty reports the all-zero quote Finnhub returns for unknown symbols
func (q quoteResponse) empty() bool {
	return q.Current == 0 && q.PreviousClose == 0 && q.Timestamp == 0
}

// candleResponse is the column oriented /stock/candle payload
type candleResponse struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Timestamp []int64   `json:"t"`
	Volume    []float64 `json:"v"`
	Status    string    `json:"s"`
}

type marketStatusResponse struct {
	Exchange  string `json:"exchange"`
	Holiday   string `json:"holiday"`
	IsOpen    bool   `json:"isOpen"`
	Session   string `json:"session"`
	Timezone  string `json:"timezone"`
	Timestamp int64  `json:"t"`
}

type errorResponse struct {
	Error string `json:"error"`
}
