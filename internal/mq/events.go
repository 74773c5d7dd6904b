package mq

// ChannelImageReplaced carries ImageReplaced events. They are published
// whenever a stored whiskey image stops being referenced, either because a
// new image was uploaded or because the whiskey was deleted.
const ChannelImageReplaced = "whiskey.image.replaced"

// ImageReplaced names an object key that is no longer referenced.
type ImageReplaced struct {
	WhiskeyID int    `json:"whiskey_id"`
	UserID    int    `json:"user_id"`
	ObjectKey string `json:"object_key"`
}
