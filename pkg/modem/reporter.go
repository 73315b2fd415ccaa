package modem

import "context"

// Reporter sends odometer reports by SMS to a fixed recipient.
type Reporter struct {
	Driver    *Driver
	Recipient string
	VehicleID string
}

// Report implements odometer.Reporter.
func (r *Reporter) Report(ctx context.Context, odometer int64) error {
	return r.Driver.SendSMS(ctx, r.Recipient, r.VehicleID, odometer)
}

// Name implements framework.Named.
func (r *Reporter) Name() string {
	return "sms"
}
