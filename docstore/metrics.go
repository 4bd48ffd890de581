package docstore

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/did-method-plc/go-diddoc/docstore")

var (
	DocsPutCounter         metric.Int64Counter
	DocsDeletedCounter     metric.Int64Counter
	DocLoadFailuresCounter metric.Int64Counter
)

var (
	StoreMemory = attribute.String("store", "memory")
	StoreGorm   = attribute.String("store", "gorm")
)

func init() {
	var err error
	DocsPutCounter, err = meter.Int64Counter("diddoc_store_docs_put",
		metric.WithDescription("Number of documents written (created or replaced)"),
	)
	if err != nil {
		panic(err)
	}
	DocsDeletedCounter, err = meter.Int64Counter("diddoc_store_docs_deleted",
		metric.WithDescription("Number of documents deleted"),
	)
	if err != nil {
		panic(err)
	}
	DocLoadFailuresCounter, err = meter.Int64Counter("diddoc_store_doc_load_failures",
		metric.WithDescription("Number of stored documents which failed to decode when loaded"),
	)
	if err != nil {
		panic(err)
	}
}
