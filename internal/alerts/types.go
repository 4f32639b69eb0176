package alerts

import "github.com/iris-assistant/backend/internal/storage/models"

type TypeInfo struct {
	Type  models.AlertType `json:"type"`
	Label string           `json:"label"`
	Icon  string           `json:"icon"`
	Color string           `json:"color"`
}

var typeTable = []TypeInfo{
	{models.AlertTraffic, "Congestionamento", "🚗", "#f97316"},
	{models.AlertCheckpoint, "Fiscalização", "🚓", "#3b82f6"},
	{models.AlertAccident, "Acidente", "🚧", "#ef4444"},
	{models.AlertClosed, "Via Interditada", "🚦", "#7f1d1d"},
	{models.AlertWeather, "Alagamento", "🌧️", "#0ea5e9"},
	{models.AlertConstruction, "Obras", "🛑", "#eab308"},
}

// TypeTable lists every alert type with its display attributes.
func TypeTable() []TypeInfo {
	return append([]TypeInfo(nil), typeTable...)
}

func Lookup(t models.AlertType) (TypeInfo, bool) {
	for _, info := range typeTable {
		if info.Type == t {
			return info, true
		}
	}
	return TypeInfo{}, false
}
