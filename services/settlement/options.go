package settlement

type purchaseOptions struct {
	expectedSellerID int64
}

type PurchaseOption func(*purchaseOptions)

// WithExpectedSeller fails the purchase with ERR_CONFLICT when the token is no longer
// owned by sellerID at the time it is locked. Without it, a buyer racing another
// purchase of the same item buys from whoever owns the token when its turn comes.
func WithExpectedSeller(sellerID int64) PurchaseOption {
	return func(o *purchaseOptions) {
		o.expectedSellerID = sellerID
	}
}

func applyPurchaseOptions(opts []PurchaseOption) purchaseOptions {
	o := purchaseOptions{}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
