package models

type UserAccount struct {
	JsonModel
	Name   string `json:"name"`
	Email  string `json:"email" gorm:"unique"`
	Banned bool   `gorm:"default:false" json:"-"`

	Subscription Subscription `gorm:"default:free" json:"subscription"`
	// overrides the tier limit when set
	EnforcedDailySuggestionLimit *int32 `json:"enforced_daily_suggestion_limit"`

	// masculine, feminine or neutral; drives product image prompts
	PresentationStyle *string `json:"presentation_style"`
	// free-text hints passed to the stylist prompt
	StyleProfile *string `gorm:"type:text" json:"style_profile"`

	ReceiveNotifications bool            `gorm:"default:true" json:"receive_notifications"`
	PushTokens           []UserPushToken `gorm:"foreignKey:UserAccountID;constraint:OnDelete:CASCADE;" json:"-"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint     `gorm:"index"`
	Platform      Platform `json:"platform"`
	Token         string   `json:"token"`
	Active        bool     `gorm:"default:false" json:"-"`
}
