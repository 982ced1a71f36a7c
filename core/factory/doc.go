// Package factory provides a small generic registry used to instantiate
// pluggable components, such as price adapters and metrics sinks, from
// configuration. Components are selected by a type string and decode their
// raw settings into typed structs.
//
// Example usage:
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.MustRegister("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c.URL), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://db:8086"}})
package factory
