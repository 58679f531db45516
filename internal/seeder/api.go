package seeder

// apiResponse models the getChargerInfo response of the EvCharger feed.
type apiResponse struct {
	ResultCode string `json:"resultCode"`
	ResultMsg  string `json:"resultMsg"`
	TotalCount int    `json:"totalCount"`
	PageNo     int    `json:"pageNo"`
	NumOfRows  int    `json:"numOfRows"`
	Items      struct {
		Item []apiItem `json:"item"`
	} `json:"items"`
}

// apiItem is one charger row. Every field arrives as a string.
type apiItem struct {
	StatNm    string `json:"statNm"`
	StatID    string `json:"statId"`
	ChgerID   string `json:"chgerId"`
	ChgerType string `json:"chgerType"`
	Addr      string `json:"addr"`
	Lat       string `json:"lat"`
	Lng       string `json:"lng"`
	BusiNm    string `json:"busiNm"`
	BusiCall  string `json:"busiCall"`
	UseTime   string `json:"useTime"`
	Stat      string `json:"stat"`
	Output    string `json:"output"`
}

const resultCodeOK = "00"
