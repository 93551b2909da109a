package model

// Model is implemented by the JSON documents of the perffarm REST interface.
// Import fills the document from a plant, performance test or test result of
// the storage layer, accepting either a value or a non-nil pointer. Export
// converts a test result document back to the storage layer; the plant and
// performance test documents are read-only and return an error.
type Model interface {
	Import(interface{}) error
	Export() (interface{}, error)
}

var (
	_ Model = &APIPlant{}
	_ Model = &APIPerformanceTest{}
	_ Model = &APITestResult{}
)
