// Package extract unpacks downloaded runtime archives.
//
// The official Windows LÖVE downloads are self-extracting installers that
// archive/zip cannot open, so the default Extractor shells out to 7-Zip. Zip
// covers runtimes published as plain .zip files.
package extract
