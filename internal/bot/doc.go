// Package bot turns Telegram updates into record operations and builds the
// text replies sent back to the chat.
package bot
