package image

import (
	"fmt"
	"image/color"
	"math"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseThreshold(t *testing.T) {
	type in struct {
		text     string
		previous float64
	}

	tests := []struct {
		name string
		in   in
		want float64
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"0.25", 0.003},
			0.25,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{" 1e-3 ", 0.5},
			0.001,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"-0.5", 0.5},
			0,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"7", 0.5},
			1,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"0,5", 0.003},
			0.003,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"", 0.003},
			0.003,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"NaN", 0.2},
			0.2,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			got := ParseThreshold(in.text, in.previous)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMarkColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"#ff6699",
			DefaultMarkColor,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"FF6699",
			DefaultMarkColor,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"#f69",
			DefaultMarkColor,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"#000000",
			color.RGBA{A: 0xff},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"#zzzzzz",
			color.RGBA{},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"#ff66",
			color.RGBA{},
			true,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		wantErr := tt.wantErr
		t.Run(name, func(t *testing.T) {
			got, err := ParseMarkColor(in)
			if (err != nil) != wantErr {
				t.Fatalf("Expected error %v, got %v", wantErr, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatMarkColor(t *testing.T) {
	if got := FormatMarkColor(DefaultMarkColor); got != "#FF6699" {
		t.Errorf("Expected #FF6699, got %s", got)
	}
	if got := FormatMarkColor(color.RGBA{R: 1, G: 2, B: 3}); got != "#010203" {
		t.Errorf("Expected #010203, got %s", got)
	}
}

func TestParameters_Clamp(t *testing.T) {
	got := Parameters{Threshold: -1, MarkColor: DefaultMarkColor, MarkAmount: math.NaN()}.Clamp()
	want := Parameters{Threshold: 0, MarkColor: DefaultMarkColor, MarkAmount: 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	got = Parameters{Threshold: 2, MarkAmount: 1.5}.Clamp()
	want = Parameters{Threshold: 1, MarkAmount: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(DefaultParameters(), DefaultParameters().Clamp()); diff != "" {
		t.Errorf("Expected defaults to be in range (-want +got):\n%s", diff)
	}
}
