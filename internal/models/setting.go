package models

// SettingRegistrationsClosed gates account creation when its value is "true".
const SettingRegistrationsClosed = "registrationsClosed"

// Setting is one key/value configuration row.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
