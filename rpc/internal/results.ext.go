package internal

import (
	"time"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldTestID      = "test_id"
	fieldPlant       = "plant"
	fieldBranches    = "branches"
	fieldResults     = "results"
	fieldID          = "id"
	fieldBuildNumber = "build_number"
	fieldBranch      = "branch"
	fieldRevision    = "revision"
	fieldMetric      = "metric"
	fieldTimestamp   = "timestamp"
	fieldDescription = "description"
)

// QueryStruct encodes a results query as a FetchResults request.
func QueryStruct(q model.ResultsQuery) (*structpb.Struct, error) {
	branches := make([]interface{}, len(q.Branches))
	for i, b := range q.Branches {
		branches[i] = b
	}

	s, err := structpb.NewStruct(map[string]interface{}{
		fieldTestID:   q.TestID,
		fieldPlant:    q.Plant,
		fieldBranches: branches,
	})
	return s, errors.Wrap(err, "problem encoding results query")
}

// ExportQuery decodes a FetchResults request. Missing fields are empty;
// fields of the wrong type are an error.
func ExportQuery(s *structpb.Struct) (model.ResultsQuery, error) {
	q := model.ResultsQuery{}
	if s == nil {
		return q, errors.New("request is empty")
	}
	fields := s.GetFields()

	var err error
	if q.TestID, err = stringField(fields, fieldTestID); err != nil {
		return q, err
	}
	if q.Plant, err = stringField(fields, fieldPlant); err != nil {
		return q, err
	}

	if v, ok := fields[fieldBranches]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			list := v.GetListValue()
			if list == nil {
				return q, errors.Errorf("'%s' must be a list of strings", fieldBranches)
			}
			for _, b := range list.GetValues() {
				sv, isString := b.GetKind().(*structpb.Value_StringValue)
				if !isString {
					return q, errors.Errorf("'%s' must be a list of strings", fieldBranches)
				}
				q.Branches = append(q.Branches, sv.StringValue)
			}
		}
	}

	return q, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", errors.Errorf("'%s' must be a string", name)
	}
}

// ResultsStruct encodes results as a FetchResults response. Timestamps are
// RFC 3339 strings in UTC.
func ResultsStruct(results []model.TestResult) (*structpb.Struct, error) {
	list := make([]interface{}, len(results))
	for i, r := range results {
		list[i] = map[string]interface{}{
			fieldID:          r.ID,
			fieldTestID:      r.TestID,
			fieldBuildNumber: r.BuildNumber,
			fieldPlant:       r.Plant,
			fieldBranch:      r.Branch,
			fieldRevision:    r.Revision,
			fieldMetric:      r.Metric,
			fieldTimestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
			fieldDescription: r.Description,
		}
	}

	s, err := structpb.NewStruct(map[string]interface{}{fieldResults: list})
	return s, errors.Wrap(err, "problem encoding results")
}

// ExportResults decodes a FetchResults response.
func ExportResults(s *structpb.Struct) ([]model.TestResult, error) {
	if s == nil {
		return nil, errors.New("response is empty")
	}

	values := s.GetFields()[fieldResults].GetListValue().GetValues()
	results := make([]model.TestResult, 0, len(values))
	for i, v := range values {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, errors.Errorf("result %d is not an object", i)
		}

		ts, err := time.Parse(time.RFC3339Nano, fields[fieldTimestamp].GetStringValue())
		if err != nil {
			return nil, errors.Wrapf(err, "problem parsing timestamp of result %d", i)
		}

		results = append(results, model.TestResult{
			ID:          fields[fieldID].GetStringValue(),
			TestID:      fields[fieldTestID].GetStringValue(),
			BuildNumber: int(fields[fieldBuildNumber].GetNumberValue()),
			Plant:       fields[fieldPlant].GetStringValue(),
			Branch:      fields[fieldBranch].GetStringValue(),
			Revision:    fields[fieldRevision].GetStringValue(),
			Metric:      fields[fieldMetric].GetNumberValue(),
			Timestamp:   ts.UTC(),
			Description: fields[fieldDescription].GetStringValue(),
		})
	}

	return results, nil
}
