// Package portfolio implements the Portfolio object registry.
//
// A Portfolio instance describes one software component on the device by
// four identity strings: ID, manufacturer, model and software version.
// Instance 0 belongs to the Primary Host. Its ID is fixed when the
// registry is seeded and cannot be written afterwards.
//
// Reads follow a two-step protocol for fixed buffers: a dry run with a
// nil buffer reports the size needed including the NUL terminator, and a
// short buffer fails with ErrBufferTooSmall while still reporting that
// size.
//
//	n, _ := reg.ReadIdentity(5, portfolio.IdentityModel, nil)
//	buf := make([]byte, n)
//	_, err := reg.ReadIdentity(5, portfolio.IdentityModel, buf)
package portfolio
