package domain

// Provider платёжный провайдер, от которого приходят webhook-уведомления
type Provider string

const (
	ProviderLavaTop      Provider = "lava.top"     // банковские карты (RUB/USD/EUR)
	ProviderOxProcessing Provider = "0xprocessing" // крипто-процессинг (USD)
	ProviderToolsy       Provider = "toolsy"       // альтернативный крипто-процессинг (USDT)
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderLavaTop, ProviderOxProcessing, ProviderToolsy:
		return true
	}
	return false
}

// AmountKind объявляет, какую сумму репортит провайдер: до или после своей комиссии.
// Свойство адаптера, а не конвенция — смешивание gross и net в ledger ломает учёт.
type AmountKind string

const (
	AmountGross AmountKind = "gross" // сумма, которую заплатил покупатель (до комиссии)
	AmountNet   AmountKind = "net"   // сумма, которая пришла в магазин (после комиссии)
)
