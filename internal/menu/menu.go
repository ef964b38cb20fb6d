// Package menu builds the selectable option sets shown with bot prompts.
// Builders are pure: a logical prompt name (plus small parameters) maps
// to ordered rows of label/token pairs. No storage or transport access.
package menu

import "fmt"

// Button is one selectable option: a human label and an opaque action token.
type Button struct {
	Label string
	Token string
}

// Markup is an ordered grid of buttons.
type Markup struct {
	Rows [][]Button
}

// Action tokens carried in button presses.
const (
	TokenGoHome = "go_home"
	TokenGoBack = "go_back"

	TokenRoleCustomer  = "role_customer"
	TokenRolePerformer = "role_performer"

	TokenNewOrder        = "new_order"
	TokenContactOperator = "contact_operator"
	TokenHelp            = "help"

	TokenStartOrderYes = "start_order_yes"
	TokenStartOrderNo  = "start_order_no"

	TokenUseSavedAddress = "use_saved_address"
	TokenEnterNewAddress = "enter_new_address"
	TokenSaveAddressYes  = "save_address_yes"
	TokenSaveAddressNo   = "save_address_no"

	TokenTimeChoiceUrgent = "time_choice_urgent"
	TokenTimeChoiceSelect = "time_choice_select"
	TokenTimeEnterCustom  = "time_enter_custom"

	TokenSlot1h              = "slot_1h"
	TokenSlotTodayEvening    = "slot_today_evening"
	TokenSlotTomorrowMorning = "slot_tomorrow_morning"

	TokenBag1Small  = "bag_1_small"
	TokenBag1Medium = "bag_1_medium"
	TokenBag1Large  = "bag_1_large"
	TokenBag2       = "bag_2"
	TokenBag3       = "bag_3"

	TokenBagSizeSmall  = "bag_size_small"
	TokenBagSizeMedium = "bag_size_medium"
	TokenBagSizeLarge  = "bag_size_large"

	TokenPaymentMin    = "payment_min"
	TokenPaymentCustom = "payment_custom"
	TokenPayNow        = "pay_now"

	TokenCommentYes = "comment_yes"
	TokenCommentNo  = "comment_no"

	TokenProviderMainMenu        = "provider_main_menu"
	TokenProviderNewOrders       = "provider_new_orders"
	TokenProviderMyOrders        = "provider_my_orders"
	TokenProviderCurrentOrders   = "provider_current_orders"
	TokenProviderCompletedOrders = "provider_completed_orders"
	TokenProviderWallet          = "provider_wallet"
	TokenProviderWithdraw        = "provider_withdraw"
	TokenProviderSettings        = "provider_settings"
	TokenProviderChangeCity      = "provider_change_city"
	TokenProviderSchedule        = "provider_schedule"

	TokenScheduleAlways = "schedule_always"
	TokenScheduleCustom = "schedule_custom"

	TokenDaysEveryday = "days_everyday"
	TokenDaysWeekdays = "days_weekdays"
	TokenDaysWeekend  = "days_weekend"
	TokenDaysManual   = "days_manual"

	TokenTime918         = "time_9_18"
	TokenTime1020        = "time_10_20"
	TokenTimeCustomInput = "time_custom_input"

	TokenFilterAll    = "filter_all"
	TokenFilterUrgent = "filter_urgent"
	TokenFilterLarge  = "filter_large"
	TokenFilterNone   = "filter_none"
)

// Prefixes for tokens parameterized by an order id suffix.
const (
	PrefixTake            = "provider_take_"
	PrefixRequestPhotos   = "provider_request_photos_"
	PrefixComplete        = "provider_complete_"
	PrefixFinalConfirm    = "final_confirm_"
	PrefixPhotoAtDoor     = "photo_at_door_"
	PrefixHandedOver      = "handed_over_"
	PrefixConfirmHandover = "confirm_handover_"
	PrefixDenyHandover    = "deny_handover_"
	PrefixCheckOrder      = "check_order_"
	PrefixRate            = "rate_"
	PrefixSupport         = "support_"
)

// SlotText maps a time slot token to the stored pickup time text.
var SlotText = map[string]string{
	TokenSlot1h:              "Через 1 час",
	TokenSlotTodayEvening:    "Сегодня 18:00–20:00",
	TokenSlotTomorrowMorning: "Завтра 10:00–12:00",
}

func rows(rr ...[]Button) *Markup { return &Markup{Rows: rr} }

func row(bb ...Button) []Button { return bb }

func btn(label, token string) Button { return Button{Label: label, Token: token} }

// BackHomeRow is the trailing "Back / Home" pair appended to multi-step menus.
func BackHomeRow() []Button {
	return row(btn("⬅️ Назад", TokenGoBack), btn("🏠 В начало", TokenGoHome))
}

// BackHomeOnly is a markup consisting of just the back/home row.
func BackHomeOnly() *Markup {
	return rows(BackHomeRow())
}

// Role asks the user to pick a role. Its back/home row returns to itself.
func Role() *Markup {
	return rows(
		row(btn("🛒 Я заказчик", TokenRoleCustomer)),
		row(btn("🧹 Я исполнитель", TokenRolePerformer)),
		BackHomeRow(),
	)
}

// Main is the legacy top-level customer menu.
func Main() *Markup {
	return rows(
		row(btn("🗑️ Оформить заказ", TokenNewOrder)),
		row(btn("📞 Связаться с оператором", TokenContactOperator)),
		row(btn("❓ Помощь", TokenHelp)),
	)
}

// StartOrder asks whether to begin a new order.
func StartOrder() *Markup {
	return rows(
		row(btn("✅ Да, начать", TokenStartOrderYes)),
		row(btn("❌ Нет, позже", TokenStartOrderNo)),
		BackHomeRow(),
	)
}

// SavedAddressChoice offers the stored address or a fresh one.
func SavedAddressChoice() *Markup {
	return rows(
		row(btn("✅ Да, использовать", TokenUseSavedAddress)),
		row(btn("🏠 Ввести новый адрес", TokenEnterNewAddress)),
		BackHomeRow(),
	)
}

// SaveAddress asks whether to keep the address for future orders.
func SaveAddress() *Markup {
	return rows(
		row(btn("💾 Сохранить", TokenSaveAddressYes)),
		row(btn("⛔ Не сохранять", TokenSaveAddressNo)),
		BackHomeRow(),
	)
}

// TimeChoice offers urgent pickup or slot selection.
func TimeChoice() *Markup {
	return rows(
		row(btn("⚡ Срочно (в течение часа)", TokenTimeChoiceUrgent)),
		row(btn("🕒 Выбрать время", TokenTimeChoiceSelect)),
		BackHomeRow(),
	)
}

// TimeSlots lists preset pickup intervals plus free-text entry.
func TimeSlots() *Markup {
	return rows(
		row(btn("Через 1 час", TokenSlot1h)),
		row(btn("Сегодня 18:00–20:00", TokenSlotTodayEvening)),
		row(btn("Завтра 10:00–12:00", TokenSlotTomorrowMorning)),
		row(btn("✍️ Ввести своё время", TokenTimeEnterCustom)),
		BackHomeRow(),
	)
}

// BagCount offers single-bag sizes or multi-bag counts.
func BagCount() *Markup {
	return rows(
		row(btn("1 маленький 🥟", TokenBag1Small)),
		row(btn("1 средний 🍕", TokenBag1Medium)),
		row(btn("1 большой 🎒", TokenBag1Large)),
		row(btn("2 пакета ➕", TokenBag2)),
		row(btn("3 пакета ➕", TokenBag3)),
		BackHomeRow(),
	)
}

// BagSize asks the size of bag number idx (1-based).
func BagSize(idx int) *Markup {
	return rows(
		row(btn(fmt.Sprintf("Пакет %d: маленький 🥟", idx), TokenBagSizeSmall)),
		row(btn(fmt.Sprintf("Пакет %d: средний 🍕", idx), TokenBagSizeMedium)),
		row(btn(fmt.Sprintf("Пакет %d: большой 🎒", idx), TokenBagSizeLarge)),
		BackHomeRow(),
	)
}

// Payment offers the minimum or a custom amount; the pay action appears
// only once an amount has been set.
func Payment(amountSet bool) *Markup {
	rr := [][]Button{
		row(btn("💵 Минимальная сумма (100₽)", TokenPaymentMin)),
		row(btn("✍️ Ввести свою сумму", TokenPaymentCustom)),
	}
	if amountSet {
		rr = append(rr, row(btn("✅ Оплатить", TokenPayNow)))
	}
	rr = append(rr, BackHomeRow())
	return &Markup{Rows: rr}
}

// CommentChoice asks whether to leave a courier comment.
func CommentChoice() *Markup {
	return rows(
		row(btn("📝 Да, добавить", TokenCommentYes)),
		row(btn("⛔ Нет", TokenCommentNo)),
		BackHomeRow(),
	)
}

// ProviderMain is the performer main menu.
func ProviderMain() *Markup {
	return rows(
		row(btn("📦 Новые заказы", TokenProviderNewOrders)),
		row(btn("🛠 Мои заказы", TokenProviderMyOrders)),
		row(btn("💰 Кошелёк", TokenProviderWallet)),
		row(btn("⚙️ Настройки", TokenProviderSettings)),
	)
}

// NewOrderAlert accompanies a fan-out notification.
func NewOrderAlert() *Markup {
	return rows(
		row(btn("📦 Посмотреть заказ", TokenProviderNewOrders)),
		row(btn("🏠 Главное меню", TokenProviderMainMenu)),
	)
}

// TakeOrders numbers take buttons for up to len(ids) listed orders.
func TakeOrders(ids []string) *Markup {
	var rr [][]Button
	for i, id := range ids {
		rr = append(rr, row(btn(fmt.Sprintf("⚡ Взять заказ #%d", i+1), PrefixTake+id)))
	}
	rr = append(rr, row(btn("🔙 Назад", TokenProviderMainMenu)))
	return &Markup{Rows: rr}
}

// MyOrders is the performer orders submenu.
func MyOrders() *Markup {
	return rows(
		row(btn("⚡ Текущие заказы", TokenProviderCurrentOrders)),
		row(btn("✅ Выполненные заказы", TokenProviderCompletedOrders)),
		row(btn("🔙 Назад", TokenProviderMainMenu)),
	)
}

// CurrentOrders numbers finish buttons for in-progress orders.
func CurrentOrders(ids []string) *Markup {
	var rr [][]Button
	for i, id := range ids {
		rr = append(rr, row(btn(fmt.Sprintf("✅ Завершить заказ #%d", i+1), PrefixRequestPhotos+id)))
	}
	rr = append(rr, row(btn("🔙 Назад", TokenProviderMyOrders)))
	return &Markup{Rows: rr}
}

// BackTo is a single back button pointing at the given token.
func BackTo(token string) *Markup {
	return rows(row(btn("🔙 Назад", token)))
}

// Wallet offers withdrawal from the balance view.
func Wallet() *Markup {
	return rows(
		row(btn("💸 Вывести средства", TokenProviderWithdraw)),
		row(btn("🔙 Назад", TokenProviderMainMenu)),
	)
}

// ProviderSettings is the performer settings menu.
func ProviderSettings() *Markup {
	return rows(
		row(btn("🌆 Изменить город", TokenProviderChangeCity)),
		row(btn("⏰ График работы", TokenProviderSchedule)),
		row(btn("🔙 Назад", TokenProviderMainMenu)),
	)
}

// Schedule offers 24/7 availability or a custom working schedule.
func Schedule() *Markup {
	return rows(
		row(btn("🌍 Всегда на связи (принимать заказы 24/7)", TokenScheduleAlways)),
		row(btn("📅 Задать свой график", TokenScheduleCustom)),
		row(btn("🔙 Назад", TokenProviderSettings)),
	)
}

// ScheduleDays offers day presets or manual entry.
func ScheduleDays() *Markup {
	return rows(
		row(btn("Каждый день", TokenDaysEveryday)),
		row(btn("Только будни (пн–пт)", TokenDaysWeekdays)),
		row(btn("Только выходные (сб–вс)", TokenDaysWeekend)),
		row(btn("Указать вручную", TokenDaysManual)),
		row(btn("🔙 Назад", TokenProviderSchedule)),
	)
}

// ScheduleTime offers working time presets or custom entry.
func ScheduleTime() *Markup {
	return rows(
		row(btn("⏰ С 09:00 до 18:00", TokenTime918)),
		row(btn("⏰ С 10:00 до 20:00", TokenTime1020)),
		row(btn("Указать своё", TokenTimeCustomInput)),
		row(btn("🔙 Назад", TokenScheduleCustom)),
	)
}

// NotificationFilters lists alert filter options. The none option is
// shown for the full wizard but hidden on the 24/7 shortcut.
func NotificationFilters(withNone bool) *Markup {
	rr := [][]Button{
		row(btn("🔔 Все новые заказы", TokenFilterAll)),
		row(btn("⚡ Только срочные", TokenFilterUrgent)),
		row(btn("📦 Только крупные", TokenFilterLarge)),
	}
	if withNone {
		rr = append(rr, row(btn("🔕 Ничего, сам буду заходить и смотреть", TokenFilterNone)))
	}
	rr = append(rr, row(btn("🔙 Назад", TokenScheduleCustom)))
	return &Markup{Rows: rr}
}

// PostClaim offers the photo path or in-person handover after a claim.
func PostClaim(orderID string) *Markup {
	return rows(
		row(btn("📸 Сфотографировал пакет возле двери", PrefixPhotoAtDoor+orderID)),
		row(btn("🤝 Передал в руки", PrefixHandedOver+orderID)),
		row(btn("🔙 Назад", TokenProviderMyOrders)),
	)
}

// HandoverConfirm is sent to the customer to acknowledge the handover.
func HandoverConfirm(orderID string) *Markup {
	return rows(
		row(btn("✅ Подтверждаю", PrefixConfirmHandover+orderID)),
		row(btn("❌ Не получал", PrefixDenyHandover+orderID)),
	)
}

// HandoverDenied offers the performer the photo path after a denial.
func HandoverDenied(orderID string) *Markup {
	return rows(
		row(btn("📸 Сфотографировал у двери", PrefixPhotoAtDoor+orderID)),
		row(btn("🔙 К моим заказам", TokenProviderMyOrders)),
	)
}

// ReadyToComplete offers order completion once both photos are stored.
func ReadyToComplete(orderID string) *Markup {
	return rows(
		row(btn("✅ Завершить заказ", PrefixComplete+orderID)),
		row(btn("🔙 К моим заказам", TokenProviderMyOrders)),
	)
}

// CompleteConfirm asks for the final completion confirmation.
func CompleteConfirm(orderID string) *Markup {
	return rows(
		row(btn("✅ Подтверждаю выполнение", PrefixFinalConfirm+orderID)),
		row(btn("❌ Отмена", TokenProviderMyOrders)),
	)
}

// CheckOrder lets the customer inspect a completed order.
func CheckOrder(orderID string) *Markup {
	return rows(row(btn("📸 Проверить выполнение заказа", PrefixCheckOrder+orderID)))
}

// RatingStars offers 1-5 star ratings for an order.
func RatingStars(orderID string) *Markup {
	var rr [][]Button
	for v := 1; v <= 5; v++ {
		stars := ""
		for i := 0; i < v; i++ {
			stars += "⭐"
		}
		rr = append(rr, row(btn(stars, fmt.Sprintf("%s%s_%d", PrefixRate, orderID, v))))
	}
	return &Markup{Rows: rr}
}

// Support is the single contact-support button shown after rating.
func Support(orderID string) *Markup {
	return rows(row(btn("📞 НАПИСАТЬ В ПОДДЕРЖКУ", PrefixSupport+orderID)))
}
