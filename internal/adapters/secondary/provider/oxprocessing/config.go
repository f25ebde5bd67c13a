package oxprocessing

type Config struct {
	MerchantID string `envconfig:"MERCHANT_ID"`
}
