// Package device provides the Device Resource Store for the carrier runtime.
//
// The store owns the mutable resources of the LwM2M Device object that the
// host application reports: the active power sources with their voltage
// and current readings, the internal battery, the error code set, memory
// totals and the time resources.
//
// # Rules
//
//   - The active power source set is ordered, unique and bounded by the
//     store capacity. Redeclaring it resets every measurement and the
//     battery, even when the new set is identical.
//   - Measurements may only be written for active sources. Battery level
//     and status need INTERNAL_BATTERY to be active.
//   - The error code set keeps insertion order. Adding NO_ERROR clears it,
//     duplicates are ignored, and an empty set reads as {NO_ERROR}.
//
// # Usage
//
//	store, err := device.NewStore(device.Info{Manufacturer: "Acme"}, 0)
//	if err != nil {
//	    return err
//	}
//	store.SetLogger(log)
//
//	_ = store.SetAvailablePowerSources([]device.PowerSource{
//	    device.PowerSourceDC, device.PowerSourceInternalBattery,
//	})
//	_ = store.SetVoltage(device.PowerSourceDC, 5000)
//	_ = store.SetBatteryLevel(80)
//
//	snap := store.Snapshot()
//
// # Thread Safety
//
// Store and SystemClock are safe for concurrent use. Reads return copies.
package device
