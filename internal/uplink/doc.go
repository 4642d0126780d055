// Package uplink posts sensor readings and device metadata to the collector.
//
// Each send is a single JSON POST with no retry; the control loop decides
// when to send again. Failures are returned as *UplinkError so callers can
// tell transport problems from server rejections:
//
//	client := uplink.NewClient(sensorURL, metadataURL, "ESP32_A1B2C3", syncer.Now)
//	if err := client.SendReading(21.5); err != nil {
//	    logging.Warn("reading dropped", zap.String("reason", uplink.GetShortErrorMessage(err)))
//	}
//
// Payloads carry the device name and a second-precision UTC timestamp
// without a zone suffix (2006-01-02T15:04:05).
package uplink
