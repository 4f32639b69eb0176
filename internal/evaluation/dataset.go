package evaluation

import _ "embed"

//go:embed intents.json
var defaultDataset []byte

// DefaultDataset is the labelled set shipped with the binary. Its weather
// items assume Feira de Santana as the default city.
func DefaultDataset() (*Dataset, error) {
	return LoadDatasetFromJSON(defaultDataset)
}
