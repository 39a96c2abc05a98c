package telemetry

import "fmt"

// Normal ranges for adult vitals. Temperature is in Fahrenheit.
const (
	MinHeartRate   = 60
	MaxHeartRate   = 100
	MinSystolic    = 90
	MaxSystolic    = 140
	MinDiastolic   = 60
	MaxDiastolic   = 90
	MinTemperature = 97.0
	MaxTemperature = 99.5
	MinSpO2        = 95
	MinRespRate    = 12
	MaxRespRate    = 20
)

// CheckThresholds evaluates a reading against the normal ranges and returns
// one message per violation. Nil readings are skipped.
func CheckThresholds(v *VitalSign) []string {
	var alerts []string

	if v.HeartRate != nil {
		switch {
		case *v.HeartRate < MinHeartRate:
			alerts = append(alerts, fmt.Sprintf("Low heart rate: %d bpm", *v.HeartRate))
		case *v.HeartRate > MaxHeartRate:
			alerts = append(alerts, fmt.Sprintf("High heart rate: %d bpm", *v.HeartRate))
		}
	}

	if v.BPSystolic != nil {
		switch {
		case *v.BPSystolic < MinSystolic:
			alerts = append(alerts, fmt.Sprintf("Low systolic BP: %d", *v.BPSystolic))
		case *v.BPSystolic > MaxSystolic:
			alerts = append(alerts, fmt.Sprintf("High systolic BP: %d", *v.BPSystolic))
		}
	}

	if v.BPDiastolic != nil {
		switch {
		case *v.BPDiastolic < MinDiastolic:
			alerts = append(alerts, fmt.Sprintf("Low diastolic BP: %d", *v.BPDiastolic))
		case *v.BPDiastolic > MaxDiastolic:
			alerts = append(alerts, fmt.Sprintf("High diastolic BP: %d", *v.BPDiastolic))
		}
	}

	if v.Temperature != nil {
		switch {
		case *v.Temperature < MinTemperature:
			alerts = append(alerts, fmt.Sprintf("Low temperature: %.1fF", *v.Temperature))
		case *v.Temperature > MaxTemperature:
			alerts = append(alerts, fmt.Sprintf("High temperature: %.1fF", *v.Temperature))
		}
	}

	if v.OxygenSaturation != nil && *v.OxygenSaturation < MinSpO2 {
		alerts = append(alerts, fmt.Sprintf("Low oxygen saturation: %d%%", *v.OxygenSaturation))
	}

	if v.RespiratoryRate != nil {
		switch {
		case *v.RespiratoryRate < MinRespRate:
			alerts = append(alerts, fmt.Sprintf("Low respiratory rate: %d", *v.RespiratoryRate))
		case *v.RespiratoryRate > MaxRespRate:
			alerts = append(alerts, fmt.Sprintf("High respiratory rate: %d", *v.RespiratoryRate))
		}
	}

	return alerts
}
