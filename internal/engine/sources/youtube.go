package sources

// YouTube implementation is split across two files by responsibility:
//   youtube_search.go     holds Data API v3 search pagination with date
//                         chunking, credential rotation, and batched detail
//                         lookups
//   youtube_transcript.go holds transcript fetching (watch-page player
//                         response, caption track selection, timedtext
//                         download)
