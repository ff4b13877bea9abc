package vehicle

// decodeResponse is the vPIC DecodeVinValues payload. Every value is a string
// in the flat format, including numbers.
type decodeResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []decodeResult `json:"Results"`
}

type decodeResult struct {
	VIN                 string `json:"VIN"`
	Make                string `json:"Make"`
	Model               string `json:"Model"`
	ModelYear           string `json:"ModelYear"`
	Trim                string `json:"Trim"`
	Series              string `json:"Series"`
	BodyClass           string `json:"BodyClass"`
	VehicleType         string `json:"VehicleType"`
	DriveType           string `json:"DriveType"`
	TransmissionStyle   string `json:"TransmissionStyle"`
	EngineCylinders     string `json:"EngineCylinders"`
	DisplacementL       string `json:"DisplacementL"`
	EngineConfiguration string `json:"EngineConfiguration"`
	FuelTypePrimary     string `json:"FuelTypePrimary"`
	EngineHP            string `json:"EngineHP"`
	Manufacturer        string `json:"Manufacturer"`
	PlantCountry        string `json:"PlantCountry"`
	ErrorCode           string `json:"ErrorCode"`
	ErrorText           string `json:"ErrorText"`
}

type recallsResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []recallResult `json:"results"`
}

type recallResult struct {
	NHTSACampaignNumber string `json:"NHTSACampaignNumber"`
	Component           string `json:"Component"`
	Summary             string `json:"Summary"`
	Consequence         string `json:"Consequence"`
	Remedy              string `json:"Remedy"`
	ReportReceivedDate  string `json:"ReportReceivedDate"`
}

// Specs is the audit result returned to MCP clients.
type Specs struct {
	VIN           string   `json:"vin"`
	Year          int      `json:"year"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Trim          string   `json:"trim"`
	Series        string   `json:"series"`
	BodyClass     string   `json:"body_class"`
	VehicleType   string   `json:"vehicle_type"`
	DriveType     string   `json:"drive_type"`
	Transmission  string   `json:"transmission"`
	Engine        Engine   `json:"engine"`
	Manufacturer  string   `json:"manufacturer"`
	PlantCountry  string   `json:"plant_country"`
	DecodeWarning string   `json:"decode_warning,omitempty"`
	Recalls       []Recall `json:"recalls"`
	RecallsError  string   `json:"recalls_error,omitempty"`
}

type Engine struct {
	Cylinders     string `json:"cylinders"`
	DisplacementL string `json:"displacement_l"`
	Configuration string `json:"configuration"`
	FuelType      string `json:"fuel_type"`
	Horsepower    string `json:"horsepower"`
}

// Recall is one open safety campaign for the decoded make/model/year.
type Recall struct {
	Campaign    string `json:"campaign"`
	Component   string `json:"component"`
	Summary     string `json:"summary"`
	Consequence string `json:"consequence"`
	Remedy      string `json:"remedy"`
	ReportDate  string `json:"report_date"`
}
