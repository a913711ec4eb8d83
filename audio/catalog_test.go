package audio

import (
	"errors"
	"testing"
)

func TestIsLoopbackName(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"Stereo Mix (Realtek High Definition Audio)", true},
		{"What U Hear (Sound Blaster)", true},
		{"BlackHole 2ch", true},
		{"Soundflower (2ch)", true},
		{"CABLE Output (VB-Audio Virtual Cable)", true},
		{"Monitor of Built-in Audio Analog Stereo", true},
		{"LOOPBACK device", true},
		{"MacBook Pro Microphone", false},
		{"USB Condenser Mic", false},
		{"", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLoopbackName(tt.name); got != tt.want {
				t.Errorf("IsLoopbackName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestListInputDevicesFiltersAndMarks(t *testing.T) {
	ctx := &FakeContext{Devs: []Device{
		{ID: "0", Name: "Built-in Microphone", Channels: 1},
		{ID: "1", Name: "HDMI Output", Channels: 0}, // not input-capable
		{ID: "2", Name: "Stereo Mix", Channels: 2},
	}}

	devices, err := ListInputDevices(ctx)
	if err != nil {
		t.Fatalf("ListInputDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].IsLoopback {
		t.Error("microphone marked as loopback")
	}
	if !devices[1].IsLoopback {
		t.Error("stereo mix not marked as loopback")
	}
}

func TestListInputDevicesAllOrNothing(t *testing.T) {
	ctx := &FakeContext{DevicesErr: errors.New("subsystem unavailable")}
	devices, err := ListInputDevices(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if devices != nil {
		t.Errorf("got %d devices on failure, want none", len(devices))
	}
}

func TestFindLoopback(t *testing.T) {
	t.Run("first match in enumeration order", func(t *testing.T) {
		ctx := &FakeContext{Devs: []Device{
			{ID: "0", Name: "Mic", Channels: 1},
			{ID: "1", Name: "BlackHole 2ch", Channels: 2},
			{ID: "2", Name: "Stereo Mix", Channels: 2},
		}}
		dev, err := FindLoopback(ctx)
		if err != nil {
			t.Fatalf("FindLoopback: %v", err)
		}
		if dev == nil || dev.ID != "1" {
			t.Fatalf("got %+v, want device 1", dev)
		}
		if dev.Channels <= 0 {
			t.Error("loopback device must be input-capable")
		}
	})

	t.Run("none recognizable", func(t *testing.T) {
		ctx := &FakeContext{Devs: []Device{
			{ID: "0", Name: "Mic", Channels: 1},
		}}
		dev, err := FindLoopback(ctx)
		if err != nil {
			t.Fatalf("FindLoopback: %v", err)
		}
		if dev != nil {
			t.Errorf("got %+v, want nil", dev)
		}
	})

	t.Run("match only among input-capable", func(t *testing.T) {
		ctx := &FakeContext{Devs: []Device{
			{ID: "0", Name: "Stereo Mix", Channels: 0},
			{ID: "1", Name: "Mic", Channels: 1},
		}}
		dev, err := FindLoopback(ctx)
		if err != nil {
			t.Fatalf("FindLoopback: %v", err)
		}
		if dev != nil {
			t.Errorf("got %+v, want nil", dev)
		}
	})
}

func TestFindByID(t *testing.T) {
	ctx := &FakeContext{Devs: []Device{
		{ID: "a", Name: "Mic", Channels: 1},
		{ID: "b", Name: "Stereo Mix", Channels: 2},
	}}
	dev, err := FindByID(ctx, "b")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if dev == nil || dev.Name != "Stereo Mix" {
		t.Fatalf("got %+v, want Stereo Mix", dev)
	}
	dev, err = FindByID(ctx, "zz")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if dev != nil {
		t.Errorf("got %+v for unknown ID, want nil", dev)
	}
}
