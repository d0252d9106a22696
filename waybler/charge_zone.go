package waybler

import "time"

const (
	modelTypeChargeZone          = "ChargeZoneModel"
	modelTypeWebsocketInit       = "WebsocketInitMessage"
	modelTypeCreateChargeSession = "CreateChargeSessionRequest"
)

type StationState string

const (
	StationStateEvConnected StationState = "EvConnected"
	StationStateBusy        StationState = "Busy"
	StationStateOk          StationState = "Ok"
	StationStateUnknown     StationState = "Unknown"
)

type Station struct {
	StationID int          `json:"stationId"`
	Name      string       `json:"name"`
	State     StationState `json:"state"`
}

type StationGroup struct {
	Name     string    `json:"name"`
	Stations []Station `json:"stations"`
}

// ConsumptionFee is the price of one kWh. Value excludes VAT, Total includes it.
type ConsumptionFee struct {
	Currency string  `json:"currency"`
	Vat      float64 `json:"vat"`
	Value    float64 `json:"value"`
	Total    float64 `json:"total"`
}

type PriceListEntry struct {
	At             time.Time      `json:"at"`
	ConsumptionFee ConsumptionFee `json:"consumptionFee"`
}

type ChargeZone struct {
	ModelType           string           `json:"modelType"`
	ZoneID              int              `json:"zoneId"`
	Name                string           `json:"name"`
	ContractUserID      int              `json:"contractUserId"`
	StationGroups       []StationGroup   `json:"stationGroups"`
	IsVariablePriceZone bool             `json:"isVariablePriceZone"`
	SpotPriceLimit      *float64         `json:"spotPriceLimit"`
	PriceList           []PriceListEntry `json:"priceList"`
	Currency            string           `json:"currency"`
}

type CreateChargeSessionRequest struct {
	ModelType      string  `json:"modelType"`
	StationID      int     `json:"stationId"`
	ContractUserID int     `json:"contractUserId"`
	SpotPriceLimit float64 `json:"spotPriceLimit"`
}

type CreateChargeSessionResponse struct {
	ModelType      string `json:"modelType"`
	Result         string `json:"result"`
	ContractUserID string `json:"contractUserId"`
	SessionID      int64  `json:"sessionId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}
