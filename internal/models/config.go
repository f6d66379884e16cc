package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	CreateDemoUsers bool
}

// SchedulerConfig holds the allowance daemon settings.
type SchedulerConfig struct {
	// CronSpec is the robfig/cron expression driving the periodic task tick.
	CronSpec string
	// SettingsFile is the yaml file of default settings used by setup.
	SettingsFile string
}
