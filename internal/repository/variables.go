package repository

import "encoding/json"

func marshalVariables(vars map[string]string) (interface{}, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalVariables(raw string) (map[string]string, error) {
	vars := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, err
	}
	return vars, nil
}
