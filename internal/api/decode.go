package api

import (
	"errors"

	"github.com/tidwall/gjson"

	"energy_dashboard/internal/model"
)

var ErrMalformedResponse = errors.New("malformed response")

// Decode parses an energy-summary response body. An omitted value and an
// explicit null decode differently: see model.Value.
func Decode(body []byte) (model.Data, error) {
	if !gjson.ValidBytes(body) {
		return model.Data{}, ErrMalformedResponse
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return model.Data{}, ErrMalformedResponse
	}

	var data model.Data
	entries := root.Get("data")
	if entries.Exists() && !entries.IsArray() {
		return model.Data{}, ErrMalformedResponse
	}
	entries.ForEach(func(_, entry gjson.Result) bool {
		data.Entries = append(data.Entries, decodeEntry(entry))
		return true
	})
	data.Metadata = decodeMetadata(root.Get("metadata"))
	return data, nil
}

func decodeEntry(entry gjson.Result) model.DataEntry {
	e := model.DataEntry{
		Time:   entry.Get("time").String(),
		Fields: make(map[string]map[model.Carrier]model.CarrierDatum),
	}
	entry.Get("fields").ForEach(func(field, byCarrier gjson.Result) bool {
		carriers := make(map[model.Carrier]model.CarrierDatum)
		byCarrier.ForEach(func(carrier, datum gjson.Result) bool {
			carriers[model.Carrier(carrier.String())] = model.CarrierDatum{
				Measured: decodeValue(datum.Get("measured")),
				Modeled:  decodeModeled(datum.Get("modeled")),
			}
			return true
		})
		e.Fields[field.String()] = carriers
		return true
	})
	return e
}

func decodeValue(r gjson.Result) model.Value {
	if !r.Exists() {
		return model.Value{}
	}
	return model.Value{Set: true, V: number(r)}
}

func decodeModeled(r gjson.Result) model.ModeledValue {
	if !r.Exists() {
		return model.ModeledValue{}
	}
	if !r.IsObject() {
		return model.ModeledValue{Set: true}
	}
	models := make(map[string]*float64)
	r.ForEach(func(name, v gjson.Result) bool {
		models[name.String()] = number(v)
		return true
	})
	return model.ModeledValue{Set: true, Models: models}
}

// number returns nil for null and anything that is not a JSON number.
func number(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	return model.Float(r.Float())
}

func decodeMetadata(r gjson.Result) model.Metadata {
	return model.Metadata{
		Measurement:  r.Get("measurement").String(),
		Measurements: stringArray(r.Get("measurements")),
		Fields:       stringArray(r.Get("fields")),
		Models:       stringArray(r.Get("models")),
		Carriers:     stringArray(r.Get("carriers")),
		Unit:         r.Get("unit").String(),
		Year:         int(r.Get("year").Int()),
	}
}

func stringArray(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}
