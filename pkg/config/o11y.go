package config

const DefaultServiceNameOnO11y = "courier"

type O11yConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled"`
	ServiceName    string `yaml:"service_name"`
}

func (o11yConf O11yConfig) fillDefaults() O11yConfig {
	if o11yConf.ServiceName == "" {
		o11yConf.ServiceName = DefaultServiceNameOnO11y
	}
	return o11yConf
}

func (o11yConf O11yConfig) validate() error {
	return nil
}
