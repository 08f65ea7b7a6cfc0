package services

import (
	"context"
	"fmt"

	"stylistapi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, userID uint, title string, body string, data map[string]string) error
}

type FirebaseNotifier struct {
	App *firebase.App
	DB  *gorm.DB
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{}, len(stringMap))
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

func pushMessage(token models.UserPushToken, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		APNS: &messaging.APNSConfig{
			FCMOptions: &messaging.APNSFCMOptions{
				AnalyticsLabel: "stylist",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
				CustomData: stringMapToInterfaceMap(data),
			},
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Priority:  messaging.PriorityHigh,
				ChannelID: "stylist-recommendations",
			},
			Data: data,
		},
		Data:  data,
		Token: token.Token,
	}
}

// Notify pushes to every active token of a user who has notifications enabled.
func (f FirebaseNotifier) Notify(ctx context.Context, userID uint, title string, body string, data map[string]string) error {
	var user models.UserAccount
	if err := f.DB.Preload("PushTokens", "active = ?", true).First(&user, userID).Error; err != nil {
		return err
	}
	if !user.ReceiveNotifications || len(user.PushTokens) == 0 {
		return nil
	}
	client, err := f.App.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init messaging client: %w", err)
	}
	messages := make([]*messaging.Message, 0, len(user.PushTokens))
	for _, token := range user.PushTokens {
		messages = append(messages, pushMessage(token, title, body, data))
	}
	br, err := client.SendEach(ctx, messages)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "sent": br.SuccessCount, "failed": br.FailureCount})
	for i, resp := range br.Responses {
		if resp == nil || resp.Success {
			continue
		}
		// unregistered tokens never come back
		if messaging.IsUnregistered(resp.Error) {
			f.DB.Model(&models.UserPushToken{}).Where("id = ?", user.PushTokens[i].ID).Update("active", false)
		}
		log.WithError(resp.Error).WithField("platform", user.PushTokens[i].Platform).Warn("push failed")
	}
	log.Info("push notifications sent")
	return nil
}
