// Package bootstrap turns config sections into live infrastructure for the
// error-recovery stack: the structured logger boundaries and the notification
// center log through, the tracer provider behind boundary.retry spans, the Redis
// client backing both the content probe and the Redis sink, and the Kafka sink.
//
// Each initializer takes its own config section so embedding services can pick
// only what they need:
//
//	cfg, err := config.Load(config.LoadOptions{EnvPrefix: "GUARD", AllowNoConfig: true})
//	if err != nil {
//		return err
//	}
//	lg, err := bootstrap.InitLogger(cfg.Log, cfg.App.Name)
//	if err != nil {
//		return err
//	}
//	shutdown, err := bootstrap.InitTracing(ctx, cfg.Tracing)
//	if err == nil {
//		defer shutdown(context.Background())
//	}
//	ks, err := bootstrap.InitKafka(cfg.Kafka, cfg.Notify.KafkaTopic)
//	if err != nil {
//		return err
//	}
//	center := notify.NewCenter(notify.Options{Logger: lg, Sinks: []notify.Sink{ks}})
//	defer center.Close()
package bootstrap
