package audio

import "strings"

// Device names that conventionally identify a system-loopback input: vendor
// virtual-cable drivers and the platform "what is playing" mix endpoints.
// Matching is a heuristic; there is no portable API to ask for "whatever
// plays through the speakers".
var loopbackKeywords = []string{
	"stereo mix",
	"what u hear",
	"loopback",
	"blackhole",
	"soundflower",
	"virtual cable",
	"wasapi",
	"system audio",
	"monitor of",
}

func IsLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range loopbackKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ListInputDevices enumerates input-capable devices with loopback candidates
// marked. It is all-or-nothing: an enumeration failure returns no devices.
func ListInputDevices(ctx Context) ([]Device, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	var result []Device
	for _, d := range devices {
		if d.Channels <= 0 {
			continue
		}
		d.IsLoopback = IsLoopbackName(d.Name)
		result = append(result, d)
	}
	return result, nil
}

// FindLoopback returns the first input-capable device whose name matches a
// known loopback convention, in enumeration order, or nil when none does.
// A nil result does not mean no loopback capability exists, only that none
// was named recognizably.
func FindLoopback(ctx Context) (*Device, error) {
	devices, err := ListInputDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].IsLoopback {
			return &devices[i], nil
		}
	}
	return nil, nil
}

// FindByID resolves an enumerated device by its opaque identifier.
func FindByID(ctx Context, id string) (*Device, error) {
	devices, err := ListInputDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].ID == id {
			return &devices[i], nil
		}
	}
	return nil, nil
}
