package app

import "github.com/wattrewards/wattrewards/internal/services"

// ServiceOptions returns options for the notification store.
func (c NotificationsConfig) ServiceOptions() []services.NotificationOption {
	return []services.NotificationOption{
		services.WithPageLimits(c.DefaultLimit, c.MaxLimit),
	}
}
