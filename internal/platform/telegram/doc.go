// Package telegram wraps the Telegram Bot API client used to answer bot
// commands and push notifications to chats.
package telegram
