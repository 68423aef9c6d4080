// Package appdef loads and decodes application descriptors.
//
// A descriptor lists the tasks an environment runs:
//
//	{"tasks": [{"name": "web", "desiredCount": 1, "containerDefinitions": [...]}]}
//
// Container definitions use the container service's field names. YAML
// descriptors are accepted and normalized to JSON on load, so the rest of
// the tool only ever sees JSON.
package appdef
