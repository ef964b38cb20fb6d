package engine

// Conversation state labels. A state names the input the bot is waiting
// for; menus shown between inputs do not need a state of their own since
// button tokens are routed globally.
const (
	StateStart               = "start"
	StateAwaitingRole        = "awaiting_role"
	StateCustomerGreeting    = "customer_greeting"
	StateChooseAddressOption = "choose_address_option"
	StateAwaitingCity        = "awaiting_city"
	StateAwaitingAddress     = "awaiting_address"
	StateAskSaveAddress      = "ask_save_address"
	StateAwaitingTimeChoice  = "awaiting_time_choice"
	StateAwaitingTimeSlot    = "awaiting_time_slot"
	StateAwaitingCustomTime  = "awaiting_custom_time_text"
	StateAwaitingBags        = "awaiting_bag_selection"
	StateAwaitingMultiBag    = "awaiting_multi_bag_size"
	StateAwaitingPayment     = "awaiting_payment"
	StateAwaitingAmount      = "awaiting_custom_amount"
	StateAwaitingCommentOpt  = "awaiting_comment_choice"
	StateAwaitingCommentText = "awaiting_comment_text"

	StateAwaitingProviderCity = "awaiting_provider_city"
	StateProviderWorking      = "provider_working"
	StateAwaitingPhotoDoor    = "awaiting_photo_at_door"
	StateAwaitingPhotoBin     = "awaiting_photo_at_bin"
	StateReadyToComplete      = "provider_ready_to_complete"
	StateAwaitingHandover     = "awaiting_handover_confirmation"

	StateAwaitingSupportMsg = "awaiting_support_message"

	StateAwaitingManualDays = "awaiting_manual_days"
	StateAwaitingTimeStart  = "awaiting_custom_time_start"
	StateAwaitingTimeEnd    = "awaiting_custom_time_end"
)

// backTable maps each state to the state whose prompt "back" re-enters.
// It is a fixed lookup, not an undo stack: backing out of the multi-bag
// loop drops any sizes already collected for the current order. States
// not listed fall back to the role prompt.
var backTable = map[string]string{
	StateCustomerGreeting:    StateAwaitingRole,
	StateChooseAddressOption: StateCustomerGreeting,
	StateAwaitingCity:        StateCustomerGreeting,
	StateAwaitingAddress:     StateAwaitingCity,
	StateAskSaveAddress:      StateAwaitingAddress,
	StateAwaitingTimeChoice:  StateAskSaveAddress,
	StateAwaitingTimeSlot:    StateAwaitingTimeChoice,
	StateAwaitingCustomTime:  StateAwaitingTimeSlot,
	StateAwaitingBags:        StateAwaitingTimeChoice,
	StateAwaitingMultiBag:    StateAwaitingBags,
	StateAwaitingPayment:     StateAwaitingBags,
	StateAwaitingAmount:      StateAwaitingPayment,
	StateAwaitingCommentOpt:  StateAwaitingPayment,
	StateAwaitingCommentText: StateAwaitingCommentOpt,
}

func backTarget(state string) string {
	if target, ok := backTable[state]; ok {
		return target
	}
	return StateAwaitingRole
}
