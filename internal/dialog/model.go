package dialog

type State string

const (
	StateIdle State = "idle"

	// Создание тарифа (админ)
	StateAdmTariffName     State = "adm_tariff_name"     // ввод названия
	StateAdmTariffPrice    State = "adm_tariff_price"    // ввод цены
	StateAdmTariffDuration State = "adm_tariff_duration" // срок членства, дней
	StateAdmTariffValidity State = "adm_tariff_validity" // срок жизни токена, дней
	StateAdmTariffConfirm  State = "adm_tariff_confirm"

	// Редактирование тарифа
	StateAdmTariffRename  State = "adm_tariff_rename"
	StateAdmTariffReprice State = "adm_tariff_reprice"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}
