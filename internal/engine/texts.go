package engine

// User-facing message texts. Kept in one place so flows read as
// transition logic rather than string soup.
const (
	textRolePrompt = "👋 Привет! Я помогу вынести мусор.\n\nКто вы?"

	textCustomerGreeting = "Отлично! Оформим заказ на вынос мусора?"
	textOrderLater       = "Хорошо, возвращайтесь, когда будет нужно! 👋"

	textHelp = "ℹ️ Как это работает:\n\n" +
		"1. Вы указываете адрес, время и количество пакетов.\n" +
		"2. Оплачиваете заказ (минимум 100 ₽).\n" +
		"3. Исполнитель забирает мусор и присылает фотоотчёт.\n\n" +
		"💰 Тарифы:\n" +
		"• 1 пакет — от 100 ₽\n" +
		"• 2 пакета — от 150 ₽\n" +
		"• 3 пакета — от 200 ₽\n\n" +
		"Срочный вынос (в течение часа) — по той же цене."

	textAskCity         = "🌆 Из какого вы города?"
	textCityTooShort    = "Название города слишком короткое, попробуйте ещё раз:"
	textAskAddress      = "🏠 Укажите адрес: улица, дом, квартира/подъезд."
	textAddressTooShort = "Адрес слишком короткий. Укажите улицу, дом и квартиру:"
	textSavedAddress    = "У вас сохранён адрес:\n\n📍 %s\n\nИспользовать его?"
	textAskSaveAddress  = "💾 Сохранить этот адрес для будущих заказов?"
	textAddressSaved    = "✅ Адрес сохранён!"

	textAskTime       = "⏰ Когда забрать мусор?"
	textAskTimeSlot   = "🕒 Выберите удобное время:"
	textAskCustomTime = "✍️ Напишите удобные дату и время, например: «завтра после 19:00»."

	textAskBags       = "🗑 Сколько пакетов и какого размера?"
	textAskBagSize    = "Выберите размер пакета №%d:"
	textAskPayment    = "💳 К оплате минимум 100 ₽. Выберите сумму:"
	textAmountSet     = "Сумма заказа: %d ₽.\n\nНажмите «Оплатить» для подтверждения."
	textAskAmount     = "✍️ Введите сумму в рублях (минимум 100):"
	textAmountInvalid = "Не получилось распознать сумму. Введите число не меньше 100:"
	textAmountTooLow  = "Минимальная сумма заказа — 100 ₽. Введите сумму ещё раз:"

	textOrderCreated = "✅ Заказ оформлен и оплачен!\n\n" +
		"📍 Адрес: %s\n⏰ Время: %s\n🗑 Пакетов: %d\n💰 Сумма: %s ₽\n\n" +
		"Хотите оставить комментарий для исполнителя? (код домофона, этаж и т.п.)"

	textAskComment   = "📝 Напишите комментарий для исполнителя:"
	textCommentSaved = "Комментарий сохранён. Исполнитель скоро заберёт мусор! 🚀"
	textOrderDone    = "Спасибо за заказ! Исполнитель скоро заберёт мусор! 🚀"

	textAskProviderCity  = "🌆 В каком городе вы готовы выполнять заказы?"
	textProviderMenu     = "🧹 Меню исполнителя:"
	textProviderCitySet  = "✅ Город сохранён: %s"
	textNoNewOrders      = "Пока нет новых заказов. Загляните позже! 🕐"
	textOrderTaken       = "⚠️ Этот заказ уже взял другой исполнитель."
	textOrderClaimed     = "✅ Заказ ваш!\n\n%s\nКогда вынесете мусор, отметьте результат:"
	textCustomerClaimed  = "🚚 Ваш заказ принят исполнителем! Он скоро заберёт мусор."
	textNoCurrentOrders  = "У вас нет текущих заказов."
	textNoCompletedYet   = "Выполненных заказов пока нет."
	textAskPhotoDoor     = "📸 Пришлите фото пакета у двери:"
	textPhotoDoorSaved   = "Фото принято! Теперь пришлите фото пакета у мусорного бака:"
	textPhotoBinSaved    = "Отлично, оба фото на месте! Можно завершать заказ."
	textPhotoNotExpected = "Сейчас фото не требуется."
	textHandoverWaiting  = "⏳ Ждём подтверждения от заказчика..."
	textHandoverAsk      = "🤝 Исполнитель сообщил, что передал вам заказ лично. Подтверждаете?"
	textHandoverOK       = "Спасибо за подтверждение! 🙌"
	textHandoverToProv   = "✅ Заказчик подтвердил передачу. Пришлите фото пакета у мусорного бака:"
	textHandoverDenied   = "❌ Заказчик не подтвердил передачу. Сфотографируйте пакет у двери:"
	textHandoverDeniedOK = "Мы сообщили исполнителю. Он пришлёт фотоотчёт."
	textCompleteConfirm  = "Подтвердите выполнение заказа:"
	textOrderUnavailable = "⚠️ Заказ недоступен: он уже завершён или закреплён за другим исполнителем."
	textOrderCompleted   = "🎉 Заказ завершён!\n\n💰 Сумма заказа: %s ₽\n📉 Комиссия сервиса: %s ₽\n✅ Ваш заработок: %s ₽"
	textCustomerCheck    = "✅ Ваш заказ выполнен! Проверьте результат:"

	textWallet   = "💰 Ваш баланс: %s ₽\n⭐ Рейтинг: %s (%d оценок)"
	textWithdraw = "💸 Заявка на вывод принята. Мы свяжемся с вами для уточнения реквизитов."

	textSettingsMenu  = "⚙️ Настройки:"
	textScheduleMenu  = "⏰ Как вы готовы принимать заказы?"
	textScheduleDays  = "📅 В какие дни вы работаете?"
	textScheduleTime  = "⏰ В какое время вы работаете?"
	textManualDays    = "✍️ Напишите рабочие дни, например: «пн, ср, пт»."
	textTimeStart     = "✍️ С какого времени вы начинаете? Например: 09:00"
	textTimeEnd       = "До какого времени работаете? Например: 21:00"
	textAskFilter     = "🔔 О каких заказах присылать уведомления?"
	textScheduleSaved = "✅ График сохранён!"

	textNoPhotos      = "Фотоотчёта по этому заказу нет: заказ передан лично в руки."
	textAskRating     = "⭐ Оцените работу исполнителя:"
	textRatingThanks  = "Спасибо за оценку! ⭐"
	textAskSupportMsg = "📞 Напишите сообщение, и мы передадим его оператору:"
	textSupportSent   = "✅ Сообщение отправлено оператору. Мы ответим вам здесь."

	textAdminSet = "✅ Этот чат назначен для уведомлений администратора."

	textUnknown = "Я вас не понял. Нажмите /start, чтобы начать сначала."
)
