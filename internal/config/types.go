// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import "time"

type Configuration struct {
	LogLevel  string `mapstructure:"logLevel"`
	Port      int    `mapstructure:"port"`
	ApiPrefix string `mapstructure:"apiPrefix"`

	Environment Environment         `mapstructure:"environment"`
	Monitor     Monitor             `mapstructure:"monitor"`
	Services    []Service           `mapstructure:"services"`
	Databases   map[string]Database `mapstructure:"databases"`
	Verifier    Verifier            `mapstructure:"verifier"`
	Stats       Stats               `mapstructure:"stats"`
	Logs        Logs                `mapstructure:"logs"`
	WebSocket   WebSocket           `mapstructure:"websocket"`

	Security Security `mapstructure:"security"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Tracing  Tracing  `mapstructure:"tracing"`
}

type Environment struct {
	Default   string   `mapstructure:"default"`
	Available []string `mapstructure:"available"`
}

type Monitor struct {
	Interval      time.Duration `mapstructure:"interval"`
	LocalTimeout  time.Duration `mapstructure:"localTimeout"`
	RemoteTimeout time.Duration `mapstructure:"remoteTimeout"`
	LocalHost     string        `mapstructure:"localHost"`
	HistorySize   int           `mapstructure:"historySize"`
	HistoryLimit  int           `mapstructure:"historyLimit"`
	Databases     bool          `mapstructure:"databases"`
	// Environments lists additional environments polled on every tick next to the active one.
	Environments []string `mapstructure:"environments"`
}

type Service struct {
	Name         string              `mapstructure:"name"`
	DisplayName  string              `mapstructure:"displayName"`
	Environments map[string]Endpoint `mapstructure:"environments"`
}

type Endpoint struct {
	LocalPort int    `mapstructure:"localPort"`
	AwsUrl    string `mapstructure:"awsUrl"`
	LogFile   string `mapstructure:"logFile"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SslMode  string `mapstructure:"sslMode"`
}

type Verifier struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"maxConcurrent"`
}

type Stats struct {
	Enabled  bool     `mapstructure:"enabled"`
	Database Database `mapstructure:"database"`
}

type Logs struct {
	Enabled     bool `mapstructure:"enabled"`
	RecentLines int  `mapstructure:"recentLines"`
}

type WebSocket struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	SendBuffer     int      `mapstructure:"sendBuffer"`
}

type Security struct {
	Enabled             bool          `mapstructure:"enabled"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	Token               string        `mapstructure:"token"`
	CredentialsSource   string        `mapstructure:"credentialsSource"`
	CredentialsDatabase Database      `mapstructure:"credentialsDatabase"`
	CacheTtl            time.Duration `mapstructure:"cacheTtl"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type Tracing struct {
	CollectorEndpoint string `mapstructure:"collectorEndpoint"`
	Https             bool   `mapstructure:"https"`
	Enabled           bool   `mapstructure:"enabled"`
}
