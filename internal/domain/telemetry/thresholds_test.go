package telemetry

import (
	"reflect"
	"testing"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestCheckThresholds(t *testing.T) {
	tests := []struct {
		name  string
		vital VitalSign
		want  []string
	}{
		{
			name:  "all nil readings produce no alerts",
			vital: VitalSign{},
			want:  nil,
		},
		{
			name: "all normal",
			vital: VitalSign{
				HeartRate: intp(72), BPSystolic: intp(120), BPDiastolic: intp(80),
				Temperature: floatp(98.6), OxygenSaturation: intp(98), RespiratoryRate: intp(16),
			},
			want: nil,
		},
		{
			name:  "low heart rate",
			vital: VitalSign{HeartRate: intp(45)},
			want:  []string{"Low heart rate: 45 bpm"},
		},
		{
			name:  "high heart rate",
			vital: VitalSign{HeartRate: intp(130)},
			want:  []string{"High heart rate: 130 bpm"},
		},
		{
			name:  "boundary values are normal",
			vital: VitalSign{HeartRate: intp(60), BPSystolic: intp(140), BPDiastolic: intp(90)},
			want:  nil,
		},
		{
			name:  "low systolic",
			vital: VitalSign{BPSystolic: intp(85)},
			want:  []string{"Low systolic BP: 85"},
		},
		{
			name:  "high systolic",
			vital: VitalSign{BPSystolic: intp(160)},
			want:  []string{"High systolic BP: 160"},
		},
		{
			name:  "low diastolic",
			vital: VitalSign{BPDiastolic: intp(50)},
			want:  []string{"Low diastolic BP: 50"},
		},
		{
			name:  "high diastolic",
			vital: VitalSign{BPDiastolic: intp(100)},
			want:  []string{"High diastolic BP: 100"},
		},
		{
			name:  "low temperature",
			vital: VitalSign{Temperature: floatp(95.2)},
			want:  []string{"Low temperature: 95.2F"},
		},
		{
			name:  "high temperature",
			vital: VitalSign{Temperature: floatp(103.4)},
			want:  []string{"High temperature: 103.4F"},
		},
		{
			name:  "low oxygen saturation",
			vital: VitalSign{OxygenSaturation: intp(88)},
			want:  []string{"Low oxygen saturation: 88%"},
		},
		{
			name:  "oxygen at minimum is normal",
			vital: VitalSign{OxygenSaturation: intp(95)},
			want:  nil,
		},
		{
			name:  "low respiratory rate",
			vital: VitalSign{RespiratoryRate: intp(8)},
			want:  []string{"Low respiratory rate: 8"},
		},
		{
			name:  "high respiratory rate",
			vital: VitalSign{RespiratoryRate: intp(28)},
			want:  []string{"High respiratory rate: 28"},
		},
		{
			name: "multiple violations in fixed order",
			vital: VitalSign{
				HeartRate: intp(130), Temperature: floatp(103.4), OxygenSaturation: intp(88),
			},
			want: []string{
				"High heart rate: 130 bpm",
				"High temperature: 103.4F",
				"Low oxygen saturation: 88%",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckThresholds(&tt.vital)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CheckThresholds() = %v, want %v", got, tt.want)
			}
		})
	}
}
