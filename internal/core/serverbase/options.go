// SPDX-License-Identifier: MPL-2.0

package serverbase

// Option configures a Base instance.
type Option func(*Base)

// WithErrorChannel sets the Err() buffer size. Default is 1.
func WithErrorChannel(size int) Option {
	return func(b *Base) {
		b.errCh = make(chan error, size)
	}
}

// WithID overrides the generated incarnation ID.
func WithID(id string) Option {
	return func(b *Base) {
		if id != "" {
			b.id = id
		}
	}
}
