// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transport

import (
	"encoding/json"

	"github.com/juju/errors"
)

// Members holds the members of a JSON object that a type does not model.
// They are written back untouched when the value is encoded again, so a
// snapshot read from disk reaches the registry with all of its content.
type Members map[string]json.RawMessage

// splitMembers decodes data into v and returns every member of the object
// whose name is not in known.
func splitMembers(data []byte, v interface{}, known ...string) (Members, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, errors.Trace(err)
	}
	var all Members
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, errors.Trace(err)
	}
	for _, name := range known {
		delete(all, name)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// joinMembers encodes v and adds the extra members to the resulting
// object. Members produced by v win over extra members of the same name.
func joinMembers(v interface{}, extra Members) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(extra) == 0 {
		return data, nil
	}
	var all Members
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, errors.Trace(err)
	}
	if all == nil {
		all = make(Members, len(extra))
	}
	for name, value := range extra {
		if _, ok := all[name]; !ok {
			all[name] = value
		}
	}
	return json.Marshal(all)
}
