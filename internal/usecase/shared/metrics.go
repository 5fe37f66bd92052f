package shared

// OrderMetrics receives business outcomes of the order workflow.
type OrderMetrics interface {
	OrderCreated(totalMinor int64)
	CheckoutFailed(reason string)
	OrderCancelled()
}

type NopOrderMetrics struct{}

func (NopOrderMetrics) OrderCreated(int64)    {}
func (NopOrderMetrics) CheckoutFailed(string) {}
func (NopOrderMetrics) OrderCancelled()       {}
