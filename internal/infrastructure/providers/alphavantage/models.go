package alphavantage

// globalQuote is the body of a GLOBAL_QUOTE response. Every value is a string.
type globalQuote struct {
	Symbol        string `json:"01. symbol"`
	Open          string `json:"02. open"`
	High          string `json:"03. high"`
	Low           string `json:"04. low"`
	Price         string `json:"05. price"`
	Volume        string `json:"06. volume"`
	LatestDay     string `json:"07. latest trading day"`
	PreviousClose string `json:"08. previous close"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
}

type globalQuoteResponse struct {
	Quote globalQuote `json:"Global Quote"`
}

// seriesBar is one entry of any TIME_SERIES_* table
type seriesBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type symbolMatch struct {
	Symbol     string `json:"1. symbol"`
	Name       string `json:"2. name"`
	Type       string `json:"3. type"`
	Region     string `json:"4. region"`
	Currency   string `json:"8. currency"`
	MatchScore string `json:"9. matchScore"`
}

type searchResponse struct {
	BestMatches []symbolMatch `json:"bestMatches"`
}
