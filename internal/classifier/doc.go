// Package classifier assigns one language label to a track by running a
// cascade of signals: a collaborator vote, the artist map, lyric script
// detection, title/album/artist script detection and finally Other.
package classifier
