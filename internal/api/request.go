package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/emberalert/fire-risk/internal/model"
)

var validate = validator.New()

// Range limits match what the model was trained on; anything outside is
// rejected before it reaches the gateway.
type predictionRequest struct {
	Latitude      *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Temperature   *float64 `json:"temperature" validate:"required,gte=-50,lte=150"`
	Humidity      *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
	WindSpeed     *float64 `json:"wind_speed" validate:"required,gte=0,lte=200"`
	WindDirection *float64 `json:"wind_direction" validate:"omitempty,gte=0,lte=360"`
	Pressure      *float64 `json:"pressure" validate:"omitempty,gte=900,lte=1100"`
}

func (p predictionRequest) toObservation() model.Observation {
	obs := model.Observation{
		Latitude:      *p.Latitude,
		Longitude:     *p.Longitude,
		Temperature:   *p.Temperature,
		Humidity:      *p.Humidity,
		WindSpeed:     *p.WindSpeed,
		WindDirection: 0,
		Pressure:      1013,
	}
	if p.WindDirection != nil {
		obs.WindDirection = *p.WindDirection
	}
	if p.Pressure != nil {
		obs.Pressure = *p.Pressure
	}
	return obs
}

type batchPredictionRequest struct {
	Predictions []predictionRequest `json:"predictions" validate:"required,min=1,dive"`
}
