// Package carrier assembles the carrier runtime: the Device, Portfolio,
// Location and App Data stores, the shared storage budget and the event
// dispatcher.
//
//	reg, err := carrier.New(cfg, host.NewHandler(log, restart))
//	if err != nil {
//	    return err
//	}
//	reg.SetLogger(log)
//
//	_ = reg.Device().SetBatteryLevel(80)
//	_, _ = reg.Dispatcher().Dispatch(ctx, event.New(event.KindInit))
//
// There is no package-level state: every Registry is independent.
package carrier
